package api

import (
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"tripchat-backend/internal/auth"
	"tripchat-backend/internal/session"
	"tripchat-backend/pkg/httputil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// parseBearerToken validates the Authorization header and returns the user
// id from its claims.
func parseBearerToken(r *http.Request, jwtSecret string) (uuid.UUID, error) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return uuid.Nil, errors.New("malformed Authorization header (expected: Bearer <token>)")
	}

	claims := &auth.CustomClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return uuid.Nil, errors.New("invalid token claims")
	}
	return claims.UserID, nil
}

// respondTokenError maps JWT parse failures to 401 responses.
func respondTokenError(w http.ResponseWriter, err error) {
	log.Printf("Auth Middleware: token rejected: %v", err)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		httputil.RespondError(w, http.StatusUnauthorized, "Token has expired")
	case errors.Is(err, jwt.ErrTokenMalformed):
		httputil.RespondError(w, http.StatusUnauthorized, "Malformed token")
	default:
		httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
	}
}

// JwtAuthMiddleware verifies the JWT token from the Authorization header.
// If valid, it injects the UserID into the request context; otherwise the
// request is rejected. Used for routes that require a signed-in user.
func JwtAuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			userID, err := parseBearerToken(r, jwtSecret)
			if err != nil {
				respondTokenError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), auth.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityMiddleware resolves "who is this conversation for" on chat
// routes, which are open to signed-out visitors: a valid Bearer token
// yields the authenticated user; no token yields the anonymous session
// carried in (or minted into) the sealed session cookie.
//
// A token that is present but invalid is a 401, not a silent fall back to
// anonymous, so a signed-in client never accidentally writes history under
// the wrong owner key.
func IdentityMiddleware(jwtSecret string, aead cipher.AEAD) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var identity auth.Identity

			if r.Header.Get("Authorization") != "" {
				userID, err := parseBearerToken(r, jwtSecret)
				if err != nil {
					respondTokenError(w, err)
					return
				}
				identity = auth.Identity{UserID: userID}
			} else {
				sess := session.GetOrCreate(cookiePort{w: w, r: r, aead: aead})
				identity = auth.Identity{Session: &sess}
			}

			ctx := context.WithValue(r.Context(), auth.IdentityKey, identity)
			if identity.Authenticated() {
				ctx = context.WithValue(ctx, auth.UserIDKey, identity.UserID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
