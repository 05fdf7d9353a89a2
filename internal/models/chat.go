package models

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// ChatMessage is a single message in a conversation transcript.
// Messages are immutable once created; ordering is insertion order.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChatMessage builds a message with a fresh ID and the current time.
func NewChatMessage(text string, sender Sender) ChatMessage {
	return ChatMessage{
		ID:        uuid.New(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}

// ChatRecord is one persisted conversation. At most one record exists per
// (OwnerKey, StartingPoint, Destination) triple; saves against an existing
// triple update Messages and UpdatedAt in place rather than creating a
// duplicate. StartingPoint and Destination are opaque exact-match strings:
// no case or whitespace normalization is applied.
type ChatRecord struct {
	ID            string        `json:"id"`
	OwnerKey      string        `json:"owner_key"`
	StartingPoint string        `json:"starting_point"`
	Destination   string        `json:"destination"`
	Messages      []ChatMessage `json:"messages"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// AnonymousSession is the stable identity for an unauthenticated visitor.
// Created lazily on first need and persisted in client-side storage; stable
// across visits until explicitly cleared.
type AnonymousSession struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
