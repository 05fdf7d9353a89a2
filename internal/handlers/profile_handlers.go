package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"tripchat-backend/internal/auth"
	api_models "tripchat-backend/internal/models"
	"tripchat-backend/internal/services"
	"tripchat-backend/internal/store"
	"tripchat-backend/pkg/httputil"

	"github.com/google/uuid"
)

// maxAvatarBytes caps avatar uploads at 5 MiB.
const maxAvatarBytes = 5 << 20

// ProfileService defines the interface expected from the profile service.
type ProfileService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*api_models.User, *api_models.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req api_models.UpdateProfileRequest) (*api_models.Profile, error)
	SaveAvatar(ctx context.Context, userID uuid.UUID, filename string, file io.Reader) (string, error)
}

type ProfileHandlers struct {
	profileService ProfileService
}

func NewProfileHandlers(profileSvc ProfileService) *ProfileHandlers {
	return &ProfileHandlers{
		profileService: profileSvc,
	}
}

// userID pulls the authenticated user id from the request context; the JWT
// middleware guarantees it on these routes.
func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || id == uuid.Nil {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// HandleGetMe handles GET /v1/me: current user plus profile. A missing or
// unfetchable profile comes back as null, not as an error.
func (h *ProfileHandlers) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, profile, err := h.profileService.GetMe(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusUnauthorized, "User no longer exists")
			return
		}
		log.Printf("GetMe handler failed for user %s: %v", id, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to fetch user")
		return
	}

	resp := api_models.MeResponse{
		User: api_models.UserResponse{ID: user.ID, Email: user.Email},
	}
	if profile != nil {
		resp.Profile = &api_models.ProfileResponse{
			ID:        profile.ID,
			Username:  profile.Username,
			AvatarURL: profile.AvatarURL,
			UpdatedAt: profile.UpdatedAt,
		}
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleUpdateProfile handles PUT /v1/me/profile.
func (h *ProfileHandlers) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req api_models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	profile, err := h.profileService.UpdateProfile(r.Context(), id, req)
	if err != nil {
		log.Printf("Update profile handler failed for user %s: %v", id, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, api_models.ProfileResponse{
		ID:        profile.ID,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
		UpdatedAt: profile.UpdatedAt,
	})
}

// HandleUploadAvatar handles POST /v1/me/avatar (multipart form, field
// "avatar"). Responds with the public URL of the stored image.
func (h *ProfileHandlers) HandleUploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid multipart form (max 5MB)")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Missing 'avatar' file field")
		return
	}
	defer file.Close()

	publicURL, err := h.profileService.SaveAvatar(r.Context(), id, header.Filename, file)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedAvatar) {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Upload avatar handler failed for user %s: %v", id, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to store avatar")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"avatar_url": publicURL})
}
