package api

import (
	"crypto/cipher"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tripchat-backend/internal/auth"
	"tripchat-backend/internal/crypto"
	"tripchat-backend/internal/session"

	"github.com/google/uuid"
)

const testJWTSecret = "test-secret"

func testAEAD(t *testing.T) cipher.AEAD {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	aead, err := crypto.NewAESGCM(key)
	if err != nil {
		t.Fatalf("NewAESGCM error: %v", err)
	}
	return aead
}

// identityCapture records the identity the middleware injected.
func identityCapture(t *testing.T, got *auth.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.GetIdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity missing from context")
		}
		*got = identity
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityMiddlewareMintsAnonymousSession(t *testing.T) {
	aead := testAEAD(t)
	var got auth.Identity
	handler := IdentityMiddleware(testJWTSecret, aead)(identityCapture(t, &got))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.Authenticated() {
		t.Fatalf("expected anonymous identity without Authorization header")
	}
	if got.Session == nil || got.Session.ID == uuid.Nil {
		t.Fatalf("expected minted anonymous session, got %+v", got.Session)
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.SessionKey {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatalf("expected session cookie to be set")
	}
	if !sessionCookie.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}
}

func TestIdentityMiddlewareReusesCookieSession(t *testing.T) {
	aead := testAEAD(t)
	var first auth.Identity
	handler := IdentityMiddleware(testJWTSecret, aead)(identityCapture(t, &first))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/history", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.SessionKey {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatalf("expected session cookie after first request")
	}

	// Replay the cookie; the same session id must come back.
	var second auth.Identity
	handler = IdentityMiddleware(testJWTSecret, aead)(identityCapture(t, &second))
	req = httptest.NewRequest(http.MethodGet, "/v1/chat/history", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if second.Session == nil || second.Session.ID != first.Session.ID {
		t.Fatalf("expected stable session across requests: first %v second %v", first.Session, second.Session)
	}
}

func TestIdentityMiddlewareResolvesBearerToken(t *testing.T) {
	aead := testAEAD(t)
	userID := uuid.New()
	token, err := auth.NewAccessToken(userID, testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	var got auth.Identity
	handler := IdentityMiddleware(testJWTSecret, aead)(identityCapture(t, &got))
	req := httptest.NewRequest(http.MethodGet, "/v1/chat/history", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !got.Authenticated() || got.UserID != userID {
		t.Fatalf("expected authenticated identity for %s, got %+v", userID, got)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.SessionKey {
			t.Fatalf("authenticated request should not mint a session cookie")
		}
	}
}

func TestIdentityMiddlewareRejectsInvalidToken(t *testing.T) {
	aead := testAEAD(t)
	handler := IdentityMiddleware(testJWTSecret, aead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run for an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/history", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Invalid credentials are never downgraded to an anonymous session.
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rec.Code)
	}
}

func TestJwtAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	token, err := auth.NewAccessToken(userID, testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}

	var got uuid.UUID
	handler := JwtAuthMiddleware(testJWTSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.GetUserIDFromContext(r.Context())
		if !ok {
			t.Fatalf("user id missing from context")
		}
		got = id
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != userID {
		t.Fatalf("expected user id %s in context, got %s", userID, got)
	}

	// Missing header is rejected outright.
	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without Authorization header, got %d", rec.Code)
	}

	// Expired token gets the expiry-specific message.
	expired, err := auth.NewAccessToken(userID, testJWTSecret, -time.Hour)
	if err != nil {
		t.Fatalf("NewAccessToken error: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}
