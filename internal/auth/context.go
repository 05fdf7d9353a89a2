package auth

import (
	"context"

	"tripchat-backend/internal/models"

	"github.com/google/uuid"
)

// Identity answers "who is this conversation for": either an authenticated
// user or an anonymous visitor session. Exactly one of the two is set.
type Identity struct {
	UserID  uuid.UUID
	Session *models.AnonymousSession
}

// Authenticated reports whether the identity belongs to a signed-in user.
func (id Identity) Authenticated() bool {
	return id.UserID != uuid.Nil
}

// OwnerKey returns the key chat records are filed under for this identity:
// the user id when authenticated, the anonymous session id otherwise.
func (id Identity) OwnerKey() string {
	if id.Authenticated() {
		return id.UserID.String()
	}
	if id.Session != nil {
		return id.Session.ID.String()
	}
	return ""
}

// --- Context Helper Functions ---

// GetUserIDFromContext retrieves the authenticated UserID from the request
// context. Returns the ID and true if found, otherwise uuid.Nil and false.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetIdentityFromContext retrieves the resolved chat identity from the
// request context.
func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	return identity, ok
}
