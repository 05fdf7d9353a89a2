package session

import (
	"testing"

	"tripchat-backend/internal/storage"

	"github.com/google/uuid"
)

func TestGetOrCreateStableAcrossCalls(t *testing.T) {
	port := storage.NewMemoryStore()

	first := GetOrCreate(port)
	if first.ID == uuid.Nil {
		t.Fatalf("expected a session id")
	}
	if first.CreatedAt.IsZero() {
		t.Fatalf("expected a creation timestamp")
	}

	second := GetOrCreate(port)
	if second.ID != first.ID {
		t.Fatalf("expected stable session id, got %s then %s", first.ID, second.ID)
	}
}

func TestGetOrCreateRecoversFromCorruptData(t *testing.T) {
	port := storage.NewMemoryStore()
	if err := port.Set(SessionKey, "not json at all"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	sess := GetOrCreate(port)
	if sess.ID == uuid.Nil {
		t.Fatalf("expected a fresh session after corrupt data")
	}

	// The fresh session is persisted and stable afterwards.
	again := GetOrCreate(port)
	if again.ID != sess.ID {
		t.Fatalf("expected replacement session to persist, got %s then %s", sess.ID, again.ID)
	}
}

func TestClearMintsNewIdentity(t *testing.T) {
	port := storage.NewMemoryStore()

	first := GetOrCreate(port)
	Clear(port)
	second := GetOrCreate(port)

	if second.ID == first.ID {
		t.Fatalf("expected a new identity after Clear, got %s twice", first.ID)
	}
}

// failingPort simulates broken storage. GetOrCreate must still hand back a
// usable in-memory identity.
type failingPort struct{ err error }

func (p failingPort) Get(string) (string, bool, error) { return "", false, p.err }
func (p failingPort) Set(string, string) error         { return p.err }
func (p failingPort) Remove(string) error              { return p.err }

func TestGetOrCreateNeverFailsOutward(t *testing.T) {
	port := failingPort{err: errFailed}
	sess := GetOrCreate(port)
	if sess.ID == uuid.Nil {
		t.Fatalf("expected in-memory fallback session despite storage errors")
	}
	// Clear on broken storage must not panic either.
	Clear(port)
}

var errFailed = &storageError{}

type storageError struct{}

func (*storageError) Error() string { return "storage unavailable" }
