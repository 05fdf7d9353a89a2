package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tripchat-backend/internal/auth"
	api_models "tripchat-backend/internal/models"
	"tripchat-backend/internal/services"
	"tripchat-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
)

// ChatService defines the interface expected from the chat service.
type ChatService interface {
	StartConversation(ctx context.Context, identity auth.Identity, startingPoint, destination string) (*api_models.ConversationResponse, error)
	SendTurn(ctx context.Context, identity auth.Identity, startingPoint, destination, text string) (*api_models.ConversationResponse, error)
	ListConversations(ctx context.Context, identity auth.Identity) ([]api_models.ChatRecord, error)
	DeleteConversation(ctx context.Context, identity auth.Identity, id string) error
	ClearHistory(ctx context.Context, identity auth.Identity) error
}

type ChatHandlers struct {
	chatService ChatService
}

func NewChatHandlers(chatSvc ChatService) *ChatHandlers {
	return &ChatHandlers{
		chatService: chatSvc,
	}
}

// identity pulls the resolved chat identity from the request context. The
// identity middleware always sets one on chat routes; a missing identity is
// a wiring bug, not a client error.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.GetIdentityFromContext(r.Context())
	if !ok {
		log.Println("ERROR [ChatHandlers] no identity in request context; is the identity middleware mounted?")
		httputil.RespondError(w, http.StatusInternalServerError, "Identity resolution failed")
		return auth.Identity{}, false
	}
	return id, true
}

// HandleStartConversation handles the POST /v1/chat/start request: load the
// conversation for the route, or create it with an initial plan request.
func (h *ChatHandlers) HandleStartConversation(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	var req api_models.StartConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	conv, err := h.chatService.StartConversation(r.Context(), ident, req.StartingPoint, req.Destination)
	if err != nil {
		h.respondChatError(w, err, "start conversation")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// HandleSendMessage handles the POST /v1/chat/message request: one user turn.
func (h *ChatHandlers) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	var req api_models.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	conv, err := h.chatService.SendTurn(r.Context(), ident, req.StartingPoint, req.Destination, req.Message)
	if err != nil {
		h.respondChatError(w, err, "send message")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, conv)
}

// HandleListHistory handles the GET /v1/chat/history request.
func (h *ChatHandlers) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	records, err := h.chatService.ListConversations(r.Context(), ident)
	if err != nil {
		log.Printf("List history handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list chat history")
		return
	}

	resp := api_models.ListConversationsResponse{
		Conversations: make([]api_models.ConversationResponse, 0, len(records)),
	}
	for i := range records {
		resp.Conversations = append(resp.Conversations, api_models.ConversationResponse{
			ID:            records[i].ID,
			StartingPoint: records[i].StartingPoint,
			Destination:   records[i].Destination,
			Messages:      records[i].Messages,
			CreatedAt:     records[i].CreatedAt,
			UpdatedAt:     records[i].UpdatedAt,
		})
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeleteConversation handles DELETE /v1/chat/history/{conversationID}.
func (h *ChatHandlers) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Conversation ID is required")
		return
	}

	if err := h.chatService.DeleteConversation(r.Context(), ident, conversationID); err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			httputil.RespondError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		log.Printf("Delete conversation handler failed for %s: %v", conversationID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearHistory handles DELETE /v1/chat/history.
func (h *ChatHandlers) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.chatService.ClearHistory(r.Context(), ident); err != nil {
		log.Printf("Clear history handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to clear chat history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondChatError maps chat service errors to HTTP status codes.
func (h *ChatHandlers) respondChatError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, services.ErrMissingRoute):
		httputil.RespondError(w, http.StatusBadRequest, err.Error()) // 400
	case errors.Is(err, services.ErrEmptyMessage):
		httputil.RespondError(w, http.StatusBadRequest, err.Error()) // 400
	case errors.Is(err, services.ErrTurnInFlight):
		httputil.RespondError(w, http.StatusConflict, err.Error()) // 409
	default:
		log.Printf("Chat handler failed to %s: %v", op, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Chat request failed due to an internal error") // 500
	}
}
