package models

import (
	"time"

	"github.com/google/uuid"
)

// --- Request Structs ---

// SignupRequest defines the expected body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// LoginRequest defines the expected body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StartConversationRequest carries the route picked in the trip-planner form.
// Both fields are required; the chat cannot start without a route.
type StartConversationRequest struct {
	StartingPoint string `json:"starting_point"`
	Destination   string `json:"destination"`
}

// SendMessageRequest carries one user turn for an existing conversation.
type SendMessageRequest struct {
	StartingPoint string `json:"starting_point"`
	Destination   string `json:"destination"`
	Message       string `json:"message"`
}

// UpdateProfileRequest defines the body for profile updates.
// Pointer fields allow partial updates.
type UpdateProfileRequest struct {
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// --- Response Structs ---

// UserResponse defines the user information returned by the API.
// Avoid returning sensitive info like HashedPassword.
type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AuthResponse defines the response body for successful authentication.
type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	User        UserResponse `json:"user"`
}

// ProfileResponse defines the profile data returned by the API.
type ProfileResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  *string   `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MeResponse bundles the current user with their profile. Profile is nil
// when the profile fetch failed or no row exists; that is not an error.
type MeResponse struct {
	User    UserResponse     `json:"user"`
	Profile *ProfileResponse `json:"profile"`
}

// ConversationResponse is one conversation as returned by the chat API.
type ConversationResponse struct {
	ID            string        `json:"id"`
	StartingPoint string        `json:"starting_point"`
	Destination   string        `json:"destination"`
	Language      string        `json:"language"`
	Messages      []ChatMessage `json:"messages"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ListConversationsResponse wraps the history listing.
type ListConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

// SessionResponse returns the anonymous session identity to the client.
type SessionResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse defines the standard structure for API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
