package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"tripchat-backend/internal/models"
	"tripchat-backend/internal/store"

	"github.com/google/uuid"
)

// ErrUnsupportedAvatar is returned for avatar uploads with an extension
// outside the small allowed set.
var ErrUnsupportedAvatar = errors.New("unsupported avatar file type")

// ProfileService handles profile lookups, updates, and avatar storage.
type ProfileService struct {
	store     store.Store
	avatarDir string
}

func NewProfileService(s store.Store, avatarDir string) *ProfileService {
	return &ProfileService{
		store:     s,
		avatarDir: avatarDir,
	}
}

// GetMe returns the user together with their profile. A failed or missing
// profile fetch degrades to a nil profile; it is never an error for the
// caller.
func (s *ProfileService) GetMe(ctx context.Context, userID uuid.UUID) (*models.User, *models.Profile, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	profile, err := s.store.GetProfileByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("WARN [ProfileService] GetMe: profile fetch failed for user %s, treating as no profile: %v", userID, err)
		}
		return user, nil, nil
	}
	return user, profile, nil
}

// UpdateProfile applies a partial profile update.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.Profile, error) {
	profile := &models.Profile{
		ID:        userID,
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.store.GetProfileByID(ctx, userID)
}

// SaveAvatar stores an uploaded avatar image on disk and records its public
// URL on the profile. Returns the public URL.
func (s *ProfileService) SaveAvatar(ctx context.Context, userID uuid.UUID, filename string, file io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return "", ErrUnsupportedAvatar
	}

	if err := os.MkdirAll(s.avatarDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create avatar directory: %w", err)
	}

	// One avatar per user; re-uploading replaces the old file.
	name := userID.String() + ext
	dst, err := os.Create(filepath.Join(s.avatarDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}

	publicURL := path.Join("/avatars", name)
	profile := &models.Profile{ID: userID, AvatarURL: &publicURL}
	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return "", fmt.Errorf("failed to record avatar on profile: %w", err)
	}

	log.Printf("[ProfileService] SaveAvatar: stored avatar for user %s at %s", userID, publicURL)
	return publicURL, nil
}
