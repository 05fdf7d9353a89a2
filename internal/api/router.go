package api

import (
	"crypto/cipher"
	"net/http"
	"time"

	"tripchat-backend/internal/config"
	"tripchat-backend/internal/handlers"
	"tripchat-backend/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler    *handlers.AuthHandler
	ChatHandler    *handlers.ChatHandlers
	ProfileHandler *handlers.ProfileHandlers
	SessionCipher  cipher.AEAD
	Config         *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)                 // Inject request ID into context
	r.Use(middleware.RealIP)                    // Use X-Forwarded-For or X-Real-IP
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics, return 500
	r.Use(middleware.Timeout(60 * time.Second)) // Set a request timeout

	// --- CORS Configuration ---
	// Adjust AllowedOrigins for your frontend deployment(s)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*.vercel.app"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true, // the anonymous session rides a cookie
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// Uploaded avatars are served publicly by storage path.
	avatarServer := http.StripPrefix("/avatars/", http.FileServer(http.Dir(deps.Config.AvatarDir)))
	r.Get("/avatars/*", avatarServer.ServeHTTP)

	// --- Chat Routes (open to anonymous visitors) ---
	// Chat deliberately does not require authentication: signed-out visitors
	// converse under the anonymous session identity instead.
	r.Route("/v1/chat", func(r chi.Router) {
		if deps.ChatHandler == nil {
			panic("ChatHandler dependency is nil in router setup")
		}
		r.Use(IdentityMiddleware(deps.Config.JWTSecret, deps.SessionCipher))

		r.Post("/start", deps.ChatHandler.HandleStartConversation)
		r.Post("/message", deps.ChatHandler.HandleSendMessage)
		r.Get("/history", deps.ChatHandler.HandleListHistory)
		r.Delete("/history", deps.ChatHandler.HandleClearHistory)
		r.Delete("/history/{conversationID}", deps.ChatHandler.HandleDeleteConversation)
	})

	// Clearing the anonymous session orphans its history rows; a later
	// visit starts over with a fresh identity.
	r.Delete("/v1/session", func(w http.ResponseWriter, r *http.Request) {
		session.Clear(cookiePort{w: w, r: r, aead: deps.SessionCipher})
		w.WriteHeader(http.StatusNoContent)
	})

	// --- Authenticated Routes (JWT Required) ---
	r.Route("/v1/me", func(r chi.Router) {
		if deps.ProfileHandler == nil {
			panic("ProfileHandler dependency is nil in router setup")
		}
		r.Use(JwtAuthMiddleware(deps.Config.JWTSecret))

		r.Get("/", deps.ProfileHandler.HandleGetMe)
		r.Put("/profile", deps.ProfileHandler.HandleUpdateProfile)
		r.Post("/avatar", deps.ProfileHandler.HandleUploadAvatar)
	})

	return r
}
