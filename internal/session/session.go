// Package session manages the stable random identity assigned to
// unauthenticated visitors so their conversations can be grouped without a
// login.
package session

import (
	"encoding/json"
	"log"
	"time"

	"tripchat-backend/internal/models"
	"tripchat-backend/internal/storage"

	"github.com/google/uuid"
)

// SessionKey is the storage key the serialized session lives under.
const SessionKey = "ahmed_travel_session"

// GetOrCreate returns the session persisted in the given port, or mints and
// persists a fresh one if none is stored or the stored value is unparsable.
// It never fails outward: storage errors are logged and treated as "no
// session found", falling back to a new in-memory identity.
func GetOrCreate(port storage.Port) models.AnonymousSession {
	raw, found, err := port.Get(SessionKey)
	if err != nil {
		log.Printf("WARN [Session] GetOrCreate: failed to read session from storage: %v", err)
	}
	if found && err == nil {
		var sess models.AnonymousSession
		if err := json.Unmarshal([]byte(raw), &sess); err == nil && sess.ID != uuid.Nil {
			return sess
		}
		log.Printf("WARN [Session] GetOrCreate: stored session is unparsable, minting a new one")
	}

	sess := models.AnonymousSession{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
	}
	if raw, err := json.Marshal(sess); err == nil {
		if err := port.Set(SessionKey, string(raw)); err != nil {
			// The in-memory identity is still returned; it just won't
			// survive until the next visit.
			log.Printf("WARN [Session] GetOrCreate: failed to persist new session %s: %v", sess.ID, err)
		}
	}
	log.Printf("[Session] GetOrCreate: created new anonymous session %s", sess.ID)
	return sess
}

// Clear removes the persisted session. Subsequent GetOrCreate calls produce
// a new identity. History rows keyed to the old id are orphaned, not deleted.
func Clear(port storage.Port) {
	if err := port.Remove(SessionKey); err != nil {
		log.Printf("WARN [Session] Clear: failed to remove session from storage: %v", err)
	}
}
