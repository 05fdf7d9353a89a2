package store

import (
	"context"
	"errors"

	"tripchat-backend/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a specific record is not found.
var ErrNotFound = errors.New("record not found")

// HistoryStore is the contract both chat-history backends implement. The
// local backend files records under anonymous session ids; the Postgres
// backend files them under authenticated user ids. An owner key is always
// one or the other, never both.
//
// A conversation is identified by its (ownerKey, startingPoint, destination)
// triple. Save upserts by triple: at most one record ever exists per triple,
// and saving against an existing one replaces Messages and bumps UpdatedAt
// in place. StartingPoint and Destination are matched exactly, with no case
// or whitespace normalization.
type HistoryStore interface {
	// FindByKey returns the record for the triple, or ErrNotFound.
	FindByKey(ctx context.Context, ownerKey, startingPoint, destination string) (*models.ChatRecord, error)

	// Save upserts the record for the triple and returns its id, so callers
	// can cache it for subsequent saves without re-scanning.
	Save(ctx context.Context, ownerKey, startingPoint, destination string, messages []models.ChatMessage) (string, error)

	// ListByOwner returns every record filed under the owner key, most
	// recently updated first.
	ListByOwner(ctx context.Context, ownerKey string) ([]models.ChatRecord, error)

	// Delete removes one record by id. Idempotent: deleting an absent id is
	// not an error.
	Delete(ctx context.Context, id string) error

	// ClearAll wipes every record in the backend. Idempotent.
	ClearAll(ctx context.Context) error
}

// Store defines the interface for user and profile database operations.
// This allows for mocking in tests.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	GetProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}
