// Package localkv implements the chat-history store for anonymous visitors
// on top of the key-value storage port. The whole table is one serialized
// JSON list under a single key, read and rewritten in full on every
// mutation; the port serializes mutations within this process. Expected
// scale is a handful to low hundreds of records, so the O(n) scans here are
// fine.
package localkv

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tripchat-backend/internal/models"
	"tripchat-backend/internal/storage"
	"tripchat-backend/internal/store"

	"github.com/google/uuid"
)

// HistoryKey is the storage key the serialized record list lives under.
const HistoryKey = "ahmed_travel_chat_history"

// Compile-time check that LocalStore implements store.HistoryStore.
var _ store.HistoryStore = (*LocalStore)(nil)

type LocalStore struct {
	port storage.Port
}

func NewLocalStore(port storage.Port) *LocalStore {
	return &LocalStore{port: port}
}

// FindByKey scans the persisted list for an exact triple match.
func (s *LocalStore) FindByKey(ctx context.Context, ownerKey, startingPoint, destination string) (*models.ChatRecord, error) {
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for i := range records {
		if matchesTriple(&records[i], ownerKey, startingPoint, destination) {
			return &records[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// Save upserts by triple: an existing record gets its messages replaced and
// UpdatedAt bumped in place; otherwise a new record is appended.
func (s *LocalStore) Save(ctx context.Context, ownerKey, startingPoint, destination string, messages []models.ChatMessage) (string, error) {
	records, err := s.readAll()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()

	for i := range records {
		if matchesTriple(&records[i], ownerKey, startingPoint, destination) {
			records[i].Messages = messages
			records[i].UpdatedAt = now
			if err := s.writeAll(records); err != nil {
				return "", err
			}
			return records[i].ID, nil
		}
	}

	record := models.ChatRecord{
		ID:            uuid.New().String(),
		OwnerKey:      ownerKey,
		StartingPoint: startingPoint,
		Destination:   destination,
		Messages:      messages,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	records = append(records, record)
	if err := s.writeAll(records); err != nil {
		return "", err
	}
	return record.ID, nil
}

// ListByOwner filters by owner key and sorts most recently updated first.
func (s *LocalStore) ListByOwner(ctx context.Context, ownerKey string) ([]models.ChatRecord, error) {
	records, err := s.readAll()
	if err != nil {
		return nil, err
	}
	owned := make([]models.ChatRecord, 0, len(records))
	for i := range records {
		if records[i].OwnerKey == ownerKey {
			owned = append(owned, records[i])
		}
	}
	// Insertion-sort by UpdatedAt descending; lists here are small.
	for i := 1; i < len(owned); i++ {
		for j := i; j > 0 && owned[j].UpdatedAt.After(owned[j-1].UpdatedAt); j-- {
			owned[j], owned[j-1] = owned[j-1], owned[j]
		}
	}
	return owned, nil
}

// Delete removes one record by id. Deleting an absent id is a no-op.
func (s *LocalStore) Delete(ctx context.Context, id string) error {
	records, err := s.readAll()
	if err != nil {
		return err
	}
	kept := records[:0]
	for i := range records {
		if records[i].ID != id {
			kept = append(kept, records[i])
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.writeAll(kept)
}

// ClearAll wipes the whole table.
func (s *LocalStore) ClearAll(ctx context.Context) error {
	if err := s.port.Remove(HistoryKey); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}

func matchesTriple(r *models.ChatRecord, ownerKey, startingPoint, destination string) bool {
	return r.OwnerKey == ownerKey &&
		r.StartingPoint == startingPoint &&
		r.Destination == destination
}

// readAll loads the full record list. Unparsable stored data is logged and
// treated as an empty table rather than propagated; the store must keep
// working even if the underlying storage was corrupted.
func (s *LocalStore) readAll() ([]models.ChatRecord, error) {
	raw, found, err := s.port.Get(HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	if !found || raw == "" {
		return []models.ChatRecord{}, nil
	}
	var records []models.ChatRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		log.Printf("WARN [LocalStore] readAll: stored chat history is unparsable, starting empty: %v", err)
		return []models.ChatRecord{}, nil
	}
	return records, nil
}

func (s *LocalStore) writeAll(records []models.ChatRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}
	if err := s.port.Set(HistoryKey, string(raw)); err != nil {
		return fmt.Errorf("failed to write chat history: %w", err)
	}
	return nil
}
