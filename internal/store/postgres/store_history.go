package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"tripchat-backend/internal/models"
	"tripchat-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Compile-time check to ensure PostgresStore implements store.HistoryStore.
var _ store.HistoryStore = (*PostgresStore)(nil)

// The chat_history table files conversations under authenticated user ids.
// Messages are stored as a JSONB blob: transcripts are always read and
// written whole, never queried per-message.

const findChatHistoryByKey = `-- name: FindChatHistoryByKey :one
SELECT id, user_id, starting_point, destination, messages, created_at, updated_at
FROM chat_history
WHERE user_id = $1 AND starting_point = $2 AND destination = $3;
`

// FindByKey returns the conversation for the exact (user, start, destination)
// triple, or store.ErrNotFound.
func (s *PostgresStore) FindByKey(ctx context.Context, ownerKey, startingPoint, destination string) (*models.ChatRecord, error) {
	userID, err := uuid.Parse(ownerKey)
	if err != nil {
		return nil, fmt.Errorf("invalid owner key %q: %w", ownerKey, err)
	}

	row := s.db.QueryRow(ctx, findChatHistoryByKey, userID, startingPoint, destination)
	record, err := scanChatRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] FindByKey: failed to query chat history for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error fetching chat history: %w", err)
	}
	return record, nil
}

const updateChatHistoryMessages = `-- name: UpdateChatHistoryMessages :exec
UPDATE chat_history
SET messages = $2, updated_at = NOW()
WHERE id = $1;
`

const insertChatHistory = `-- name: InsertChatHistory :exec
INSERT INTO chat_history (id, user_id, starting_point, destination, messages)
VALUES ($1, $2, $3, $4, $5);
`

// Save upserts the conversation for the triple, as a targeted UPDATE when a
// record exists and an INSERT otherwise, and returns the record id.
func (s *PostgresStore) Save(ctx context.Context, ownerKey, startingPoint, destination string, messages []models.ChatMessage) (string, error) {
	userID, err := uuid.Parse(ownerKey)
	if err != nil {
		return "", fmt.Errorf("invalid owner key %q: %w", ownerKey, err)
	}

	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("failed to marshal messages: %w", err)
	}

	existing, err := s.FindByKey(ctx, ownerKey, startingPoint, destination)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if existing != nil {
		if _, err := s.db.Exec(ctx, updateChatHistoryMessages, existing.ID, messagesJSON); err != nil {
			log.Printf("ERROR [PostgresStore] Save: failed to update chat history %s: %v", existing.ID, err)
			return "", fmt.Errorf("database error updating chat history: %w", err)
		}
		return existing.ID, nil
	}

	id := uuid.New()
	if _, err := s.db.Exec(ctx, insertChatHistory, id, userID, startingPoint, destination, messagesJSON); err != nil {
		log.Printf("ERROR [PostgresStore] Save: failed to insert chat history for user %s: %v", userID, err)
		return "", fmt.Errorf("database error inserting chat history: %w", err)
	}
	return id.String(), nil
}

const listChatHistoryByOwner = `-- name: ListChatHistoryByOwner :many
SELECT id, user_id, starting_point, destination, messages, created_at, updated_at
FROM chat_history
WHERE user_id = $1
ORDER BY updated_at DESC;
`

// ListByOwner returns the user's conversations, most recently updated first.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerKey string) ([]models.ChatRecord, error) {
	userID, err := uuid.Parse(ownerKey)
	if err != nil {
		return nil, fmt.Errorf("invalid owner key %q: %w", ownerKey, err)
	}

	rows, err := s.db.Query(ctx, listChatHistoryByOwner, userID)
	if err != nil {
		return nil, fmt.Errorf("database error listing chat history: %w", err)
	}
	defer rows.Close()

	var records []models.ChatRecord
	for rows.Next() {
		record, err := scanChatRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning chat history row: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat history rows: %w", err)
	}

	return records, nil
}

const deleteChatHistory = `-- name: DeleteChatHistory :exec
DELETE FROM chat_history WHERE id = $1;
`

// Delete removes one conversation by id. Deleting an absent id is a no-op.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid chat history id %q: %w", id, err)
	}
	if _, err := s.db.Exec(ctx, deleteChatHistory, recordID); err != nil {
		log.Printf("ERROR [PostgresStore] Delete: failed to delete chat history %s: %v", id, err)
		return fmt.Errorf("database error deleting chat history: %w", err)
	}
	return nil
}

// ClearAll wipes the whole chat_history table. Idempotent.
func (s *PostgresStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM chat_history`); err != nil {
		log.Printf("ERROR [PostgresStore] ClearAll: failed to clear chat history: %v", err)
		return fmt.Errorf("database error clearing chat history: %w", err)
	}
	return nil
}

// scanChatRecord reads one chat_history row. Works for both QueryRow and
// rows iteration via the pgx.Row interface.
func scanChatRecord(row pgx.Row) (*models.ChatRecord, error) {
	var (
		id           uuid.UUID
		userID       uuid.UUID
		record       models.ChatRecord
		messagesJSON []byte
	)
	err := row.Scan(
		&id,
		&userID,
		&record.StartingPoint,
		&record.Destination,
		&messagesJSON,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.ID = id.String()
	record.OwnerKey = userID.String()
	if err := json.Unmarshal(messagesJSON, &record.Messages); err != nil {
		return nil, fmt.Errorf("failed to parse stored messages: %w", err)
	}
	return &record, nil
}
