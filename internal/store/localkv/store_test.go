package localkv

import (
	"context"
	"testing"
	"time"

	"tripchat-backend/internal/models"
	"tripchat-backend/internal/storage"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	return NewLocalStore(storage.NewMemoryStore())
}

func messages(texts ...string) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(texts))
	for _, text := range texts {
		out = append(out, models.NewChatMessage(text, models.SenderUser))
	}
	return out
}

func TestSaveThenFindRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := messages("first", "second", "third")
	id, err := s.Save(ctx, "owner-a", "Cairo", "Dubai", saved)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a record id")
	}

	record, err := s.FindByKey(ctx, "owner-a", "Cairo", "Dubai")
	if err != nil {
		t.Fatalf("FindByKey error: %v", err)
	}
	if record.ID != id {
		t.Fatalf("expected id %s, got %s", id, record.ID)
	}
	if len(record.Messages) != len(saved) {
		t.Fatalf("expected %d messages, got %d", len(saved), len(record.Messages))
	}
	for i := range saved {
		if record.Messages[i].Text != saved[i].Text {
			t.Fatalf("message %d: expected %q, got %q", i, saved[i].Text, record.Messages[i].Text)
		}
	}
}

func TestSaveTwiceUpsertsSameRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	firstID, err := s.Save(ctx, "owner-a", "Cairo", "Dubai", messages("one"))
	if err != nil {
		t.Fatalf("first Save error: %v", err)
	}

	time.Sleep(5 * time.Millisecond) // let UpdatedAt move past CreatedAt

	secondID, err := s.Save(ctx, "owner-a", "Cairo", "Dubai", messages("one", "two"))
	if err != nil {
		t.Fatalf("second Save error: %v", err)
	}
	if secondID != firstID {
		t.Fatalf("expected upsert to reuse id %s, got %s", firstID, secondID)
	}

	all, err := s.ListByOwner(ctx, "owner-a")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one record for the triple, got %d", len(all))
	}
	if len(all[0].Messages) != 2 {
		t.Fatalf("expected second save's messages, got %d messages", len(all[0].Messages))
	}
	if !all[0].UpdatedAt.After(all[0].CreatedAt) {
		t.Fatalf("expected UpdatedAt (%s) after CreatedAt (%s)", all[0].UpdatedAt, all[0].CreatedAt)
	}
}

func TestTripleMatchingIsExact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "owner-a", "Cairo", "Dubai", messages("x")); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// Different case or owner is a different triple; no normalization.
	if _, err := s.FindByKey(ctx, "owner-a", "cairo", "Dubai"); err == nil {
		t.Fatalf("expected miss for case-differing starting point")
	}
	if _, err := s.FindByKey(ctx, "owner-b", "Cairo", "Dubai"); err == nil {
		t.Fatalf("expected miss for different owner")
	}
}

func TestListByOwnerFiltersAndSorts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "owner-a", "Cairo", "Dubai", messages("a")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.Save(ctx, "owner-a", "Riyadh", "Amman", messages("b")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := s.Save(ctx, "owner-b", "Doha", "Muscat", messages("c")); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	owned, err := s.ListByOwner(ctx, "owner-a")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 records for owner-a, got %d", len(owned))
	}
	// Most recently updated first.
	if owned[0].StartingPoint != "Riyadh" {
		t.Fatalf("expected newest record first, got %s", owned[0].StartingPoint)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "owner-a", "Cairo", "Dubai", messages("x"))
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.FindByKey(ctx, "owner-a", "Cairo", "Dubai"); err == nil {
		t.Fatalf("expected record gone after delete")
	}
	// Deleting again is a no-op, not an error.
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
}

func TestClearAllEmptiesEveryOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "owner-a", "Cairo", "Dubai", messages("x")); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := s.Save(ctx, "owner-b", "Doha", "Muscat", messages("y")); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll error: %v", err)
	}
	for _, owner := range []string{"owner-a", "owner-b"} {
		records, err := s.ListByOwner(ctx, owner)
		if err != nil {
			t.Fatalf("ListByOwner error: %v", err)
		}
		if len(records) != 0 {
			t.Fatalf("expected empty history for %s after ClearAll, got %d", owner, len(records))
		}
	}
	// ClearAll on an already-empty store is fine too.
	if err := s.ClearAll(ctx); err != nil {
		t.Fatalf("second ClearAll error: %v", err)
	}
}

func TestCorruptStoredHistoryStartsEmpty(t *testing.T) {
	port := storage.NewMemoryStore()
	if err := port.Set(HistoryKey, "definitely not json"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	s := NewLocalStore(port)

	records, err := s.ListByOwner(context.Background(), "owner-a")
	if err != nil {
		t.Fatalf("ListByOwner error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty history for corrupt storage, got %d", len(records))
	}
}
