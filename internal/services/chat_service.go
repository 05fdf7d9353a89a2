package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"tripchat-backend/internal/auth"
	"tripchat-backend/internal/i18n"
	"tripchat-backend/internal/models"
	"tripchat-backend/internal/store"
)

// Custom errors for the chat service.
var (
	// ErrMissingRoute means startingPoint or destination was empty. This is
	// a fatal precondition for a conversation, not retried.
	ErrMissingRoute = errors.New("starting point and destination are required")
	// ErrEmptyMessage means the user turn was empty or whitespace-only.
	ErrEmptyMessage = errors.New("message cannot be empty")
	// ErrTurnInFlight means a turn for this conversation is still pending;
	// the second send is a no-op.
	ErrTurnInFlight = errors.New("a message for this conversation is already being processed")
	// ErrNotOwner means the record exists but is filed under someone else's
	// owner key.
	ErrNotOwner = errors.New("conversation does not belong to this identity")
)

// Planner is the interface expected from the trip-planning webhook client.
type Planner interface {
	RequestPlan(ctx context.Context, startingPoint, destination string) ([]byte, error)
	SendMessage(ctx context.Context, message, startingPoint, destination string) ([]byte, error)
}

// ResponseParser normalizes a raw webhook response into display text.
type ResponseParser func(body []byte, lang i18n.Lang) string

// ChatService orchestrates the conversation lifecycle: it resolves which
// history backend an identity uses, loads or creates the conversation for a
// route, forwards turns to the planner webhook, and writes the transcript
// through to storage after every mutation.
type ChatService struct {
	localStore  store.HistoryStore // anonymous sessions
	remoteStore store.HistoryStore // authenticated users
	planner     Planner
	parse       ResponseParser

	// inFlight guards each conversation triple so only one outbound turn is
	// pending at a time.
	inFlight sync.Map
}

// NewChatService creates a ChatService.
func NewChatService(localStore, remoteStore store.HistoryStore, planner Planner, parse ResponseParser) *ChatService {
	return &ChatService{
		localStore:  localStore,
		remoteStore: remoteStore,
		planner:     planner,
		parse:       parse,
	}
}

// storeFor picks the history backend for the identity: authenticated users
// persist to the remote table, anonymous sessions to local storage.
func (s *ChatService) storeFor(identity auth.Identity) store.HistoryStore {
	if identity.Authenticated() {
		return s.remoteStore
	}
	return s.localStore
}

// tripleKey builds the in-flight guard key for one conversation.
func tripleKey(ownerKey, startingPoint, destination string) string {
	return ownerKey + "\x1f" + startingPoint + "\x1f" + destination
}

// StartConversation loads the conversation for the route, or creates it.
// On a history hit the stored messages are returned verbatim, with no
// webhook call. On a miss, a localized greeting is synthesized as the first
// message, the webhook is asked for an initial plan, and the transcript is
// persisted.
//
// The display language is decided here, once, from the route text, and
// holds for the remainder of the conversation.
func (s *ChatService) StartConversation(ctx context.Context, identity auth.Identity, startingPoint, destination string) (*models.ConversationResponse, error) {
	if strings.TrimSpace(startingPoint) == "" || strings.TrimSpace(destination) == "" {
		return nil, ErrMissingRoute
	}

	lang := i18n.Detect(startingPoint, destination)
	ownerKey := identity.OwnerKey()
	hs := s.storeFor(identity)

	record, err := hs.FindByKey(ctx, ownerKey, startingPoint, destination)
	if err == nil {
		return conversationResponse(record, lang), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	// New route: guard against a concurrent start for the same triple.
	key := tripleKey(ownerKey, startingPoint, destination)
	if _, loaded := s.inFlight.LoadOrStore(key, struct{}{}); loaded {
		return nil, ErrTurnInFlight
	}
	defer s.inFlight.Delete(key)

	greeting := models.NewChatMessage(i18n.Sprintf(lang, i18n.KeyGreeting, startingPoint, destination), models.SenderBot)
	messages := []models.ChatMessage{greeting}
	id := s.persist(ctx, hs, ownerKey, startingPoint, destination, messages)

	// Initial plan request for the new route.
	raw, err := s.planner.RequestPlan(ctx, startingPoint, destination)
	if err != nil {
		// The failure becomes part of the transcript, not a dropped toast;
		// the conversation stays usable.
		log.Printf("ERROR [ChatService] StartConversation: initial webhook request failed for %q -> %q: %v", startingPoint, destination, err)
		messages = append(messages, models.NewChatMessage(i18n.T(lang, i18n.KeyTurnError), models.SenderBot))
	} else {
		messages = append(messages, models.NewChatMessage(s.parse(raw, lang), models.SenderBot))
	}
	id = s.persist(ctx, hs, ownerKey, startingPoint, destination, messages)

	return &models.ConversationResponse{
		ID:            id,
		StartingPoint: startingPoint,
		Destination:   destination,
		Language:      string(lang),
		Messages:      messages,
	}, nil
}

// SendTurn appends one user turn to the conversation and asks the planner
// for the reply. The user message is appended (and persisted) before the
// network call; a webhook failure is recorded in the transcript as a
// localized error message and the conversation continues.
func (s *ChatService) SendTurn(ctx context.Context, identity auth.Identity, startingPoint, destination, text string) (*models.ConversationResponse, error) {
	if strings.TrimSpace(startingPoint) == "" || strings.TrimSpace(destination) == "" {
		return nil, ErrMissingRoute
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	lang := i18n.Detect(startingPoint, destination)
	ownerKey := identity.OwnerKey()
	hs := s.storeFor(identity)

	// Only one outbound turn per conversation at a time; a second send while
	// one is pending is rejected without touching the transcript.
	key := tripleKey(ownerKey, startingPoint, destination)
	if _, loaded := s.inFlight.LoadOrStore(key, struct{}{}); loaded {
		return nil, ErrTurnInFlight
	}
	defer s.inFlight.Delete(key)

	var messages []models.ChatMessage
	record, err := hs.FindByKey(ctx, ownerKey, startingPoint, destination)
	if err == nil {
		messages = record.Messages
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	messages = append(messages, models.NewChatMessage(text, models.SenderUser))
	id := s.persist(ctx, hs, ownerKey, startingPoint, destination, messages)

	raw, err := s.planner.SendMessage(ctx, text, startingPoint, destination)
	if err != nil {
		log.Printf("ERROR [ChatService] SendTurn: webhook request failed for %q -> %q: %v", startingPoint, destination, err)
		messages = append(messages, models.NewChatMessage(i18n.T(lang, i18n.KeyTurnError), models.SenderBot))
	} else {
		messages = append(messages, models.NewChatMessage(s.parse(raw, lang), models.SenderBot))
	}
	id = s.persist(ctx, hs, ownerKey, startingPoint, destination, messages)

	return &models.ConversationResponse{
		ID:            id,
		StartingPoint: startingPoint,
		Destination:   destination,
		Language:      string(lang),
		Messages:      messages,
	}, nil
}

// ListConversations returns the identity's conversations, most recently
// updated first.
func (s *ChatService) ListConversations(ctx context.Context, identity auth.Identity) ([]models.ChatRecord, error) {
	records, err := s.storeFor(identity).ListByOwner(ctx, identity.OwnerKey())
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	return records, nil
}

// DeleteConversation removes one conversation after verifying it belongs to
// the identity.
func (s *ChatService) DeleteConversation(ctx context.Context, identity auth.Identity, id string) error {
	hs := s.storeFor(identity)
	records, err := hs.ListByOwner(ctx, identity.OwnerKey())
	if err != nil {
		return fmt.Errorf("failed to list chat history: %w", err)
	}
	for i := range records {
		if records[i].ID == id {
			return hs.Delete(ctx, id)
		}
	}
	return ErrNotOwner
}

// ClearHistory removes every conversation filed under the identity. Only
// ever user-triggered; nothing in the system deletes history automatically.
func (s *ChatService) ClearHistory(ctx context.Context, identity auth.Identity) error {
	hs := s.storeFor(identity)
	records, err := hs.ListByOwner(ctx, identity.OwnerKey())
	if err != nil {
		return fmt.Errorf("failed to list chat history: %w", err)
	}
	for i := range records {
		if err := hs.Delete(ctx, records[i].ID); err != nil {
			return fmt.Errorf("failed to delete conversation %s: %w", records[i].ID, err)
		}
	}
	return nil
}

// persist writes the transcript through to storage. A failed write is
// logged and swallowed: the in-memory transcript the caller gets back is
// the source of truth, and the chat keeps going even if persistence failed.
func (s *ChatService) persist(ctx context.Context, hs store.HistoryStore, ownerKey, startingPoint, destination string, messages []models.ChatMessage) string {
	id, err := hs.Save(ctx, ownerKey, startingPoint, destination, messages)
	if err != nil {
		log.Printf("ERROR [ChatService] persist: failed to save chat history for owner %s: %v", ownerKey, err)
		return ""
	}
	return id
}

func conversationResponse(record *models.ChatRecord, lang i18n.Lang) *models.ConversationResponse {
	return &models.ConversationResponse{
		ID:            record.ID,
		StartingPoint: record.StartingPoint,
		Destination:   record.Destination,
		Language:      string(lang),
		Messages:      record.Messages,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}
