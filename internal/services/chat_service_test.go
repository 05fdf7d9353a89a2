package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tripchat-backend/internal/auth"
	"tripchat-backend/internal/i18n"
	"tripchat-backend/internal/models"
	"tripchat-backend/internal/planner"
	"tripchat-backend/internal/storage"
	"tripchat-backend/internal/store/localkv"

	"github.com/google/uuid"
)

// fakePlanner stands in for the trip-planning webhook.
type fakePlanner struct {
	mu        sync.Mutex
	planCalls int
	msgCalls  int
	response  []byte
	err       error

	// When set, SendMessage signals started and then waits for release,
	// so tests can hold a turn in flight.
	started chan struct{}
	release chan struct{}
}

func (f *fakePlanner) RequestPlan(ctx context.Context, startingPoint, destination string) ([]byte, error) {
	f.mu.Lock()
	f.planCalls++
	f.mu.Unlock()
	return f.response, f.err
}

func (f *fakePlanner) SendMessage(ctx context.Context, message, startingPoint, destination string) ([]byte, error) {
	f.mu.Lock()
	f.msgCalls++
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	return f.response, f.err
}

func (f *fakePlanner) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.planCalls, f.msgCalls
}

func anonymousIdentity() auth.Identity {
	return auth.Identity{
		Session: &models.AnonymousSession{ID: uuid.New(), CreatedAt: time.Now().UTC()},
	}
}

func newTestChatService(p *fakePlanner) (*ChatService, *localkv.LocalStore) {
	local := localkv.NewLocalStore(storage.NewMemoryStore())
	// The remote store is irrelevant for anonymous identities; reuse a
	// separate local store so a wrong pick would show up as missing data.
	remote := localkv.NewLocalStore(storage.NewMemoryStore())
	return NewChatService(local, remote, p, planner.ParseResponse), local
}

func TestStartConversationCreatesGreetingAndPlan(t *testing.T) {
	p := &fakePlanner{response: []byte(`[{"output": "take the coastal road"}]`)}
	svc, local := newTestChatService(p)
	ident := anonymousIdentity()

	conv, err := svc.StartConversation(context.Background(), ident, "Cairo", "Dubai")
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	if conv.Language != string(i18n.LangEN) {
		t.Fatalf("expected english session, got %s", conv.Language)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected greeting + plan, got %d messages", len(conv.Messages))
	}
	if conv.Messages[0].Sender != models.SenderBot || !strings.Contains(conv.Messages[0].Text, "Cairo") {
		t.Fatalf("expected localized greeting first, got %+v", conv.Messages[0])
	}
	if conv.Messages[1].Text != "take the coastal road" {
		t.Fatalf("expected parsed plan, got %q", conv.Messages[1].Text)
	}
	if plans, _ := p.calls(); plans != 1 {
		t.Fatalf("expected exactly one initial plan request, got %d", plans)
	}

	// The transcript was written through to the anonymous store.
	record, err := local.FindByKey(context.Background(), ident.OwnerKey(), "Cairo", "Dubai")
	if err != nil {
		t.Fatalf("FindByKey after start: %v", err)
	}
	if len(record.Messages) != 2 {
		t.Fatalf("expected persisted transcript, got %d messages", len(record.Messages))
	}
}

func TestStartConversationHitSkipsWebhook(t *testing.T) {
	p := &fakePlanner{response: []byte(`{"message": "should not be requested"}`)}
	svc, local := newTestChatService(p)
	ident := anonymousIdentity()

	existing := []models.ChatMessage{
		models.NewChatMessage("hi", models.SenderUser),
		models.NewChatMessage("hello back", models.SenderBot),
	}
	if _, err := local.Save(context.Background(), ident.OwnerKey(), "Cairo", "Dubai", existing); err != nil {
		t.Fatalf("seed Save error: %v", err)
	}

	conv, err := svc.StartConversation(context.Background(), ident, "Cairo", "Dubai")
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	if len(conv.Messages) != 2 || conv.Messages[0].Text != "hi" || conv.Messages[1].Text != "hello back" {
		t.Fatalf("expected stored transcript verbatim, got %+v", conv.Messages)
	}
	if plans, msgs := p.calls(); plans != 0 || msgs != 0 {
		t.Fatalf("expected no webhook traffic on a history hit, got plans=%d msgs=%d", plans, msgs)
	}
}

func TestStartConversationRequiresRoute(t *testing.T) {
	svc, _ := newTestChatService(&fakePlanner{})
	for _, route := range [][2]string{{"", "Dubai"}, {"Cairo", ""}, {"  ", "Dubai"}} {
		_, err := svc.StartConversation(context.Background(), anonymousIdentity(), route[0], route[1])
		if !errors.Is(err, ErrMissingRoute) {
			t.Fatalf("route %q -> %q: expected ErrMissingRoute, got %v", route[0], route[1], err)
		}
	}
}

func TestStartConversationArabicRoute(t *testing.T) {
	p := &fakePlanner{response: []byte(`{"plan": "خطة الرحلة"}`)}
	svc, _ := newTestChatService(p)

	conv, err := svc.StartConversation(context.Background(), anonymousIdentity(), "القاهرة", "دبي")
	if err != nil {
		t.Fatalf("StartConversation error: %v", err)
	}
	if conv.Language != string(i18n.LangAR) {
		t.Fatalf("expected arabic session, got %s", conv.Language)
	}
	if conv.Messages[0].Text != i18n.Sprintf(i18n.LangAR, i18n.KeyGreeting, "القاهرة", "دبي") {
		t.Fatalf("expected arabic greeting, got %q", conv.Messages[0].Text)
	}
}

func TestSendTurnAppendsUserAndBot(t *testing.T) {
	p := &fakePlanner{response: []byte(`{"message": "sure, here is the plan"}`)}
	svc, local := newTestChatService(p)
	ident := anonymousIdentity()

	conv, err := svc.SendTurn(context.Background(), ident, "Cairo", "Dubai", "what about hotels?")
	if err != nil {
		t.Fatalf("SendTurn error: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected user + bot message, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Sender != models.SenderUser || conv.Messages[0].Text != "what about hotels?" {
		t.Fatalf("expected user message first, got %+v", conv.Messages[0])
	}
	if conv.Messages[1].Sender != models.SenderBot || conv.Messages[1].Text != "sure, here is the plan" {
		t.Fatalf("expected bot reply second, got %+v", conv.Messages[1])
	}

	record, err := local.FindByKey(context.Background(), ident.OwnerKey(), "Cairo", "Dubai")
	if err != nil {
		t.Fatalf("FindByKey after turn: %v", err)
	}
	if len(record.Messages) != 2 {
		t.Fatalf("expected persisted turn, got %d messages", len(record.Messages))
	}
}

func TestSendTurnRejectsEmptyInput(t *testing.T) {
	p := &fakePlanner{}
	svc, _ := newTestChatService(p)

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := svc.SendTurn(context.Background(), anonymousIdentity(), "Cairo", "Dubai", text)
		if !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("input %q: expected ErrEmptyMessage, got %v", text, err)
		}
	}
	if _, msgs := p.calls(); msgs != 0 {
		t.Fatalf("expected no webhook calls for rejected input, got %d", msgs)
	}
}

func TestSendTurnWebhookFailureLandsInTranscript(t *testing.T) {
	p := &fakePlanner{err: errors.New("connection refused")}
	svc, local := newTestChatService(p)
	ident := anonymousIdentity()

	conv, err := svc.SendTurn(context.Background(), ident, "Cairo", "Dubai", "hello?")
	if err != nil {
		t.Fatalf("SendTurn should not fail on webhook errors, got: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected user + error message, got %d", len(conv.Messages))
	}
	want := i18n.T(i18n.LangEN, i18n.KeyTurnError)
	if conv.Messages[1].Text != want {
		t.Fatalf("expected localized error %q in transcript, got %q", want, conv.Messages[1].Text)
	}

	// The error message is a permanent part of the persisted transcript.
	record, err := local.FindByKey(context.Background(), ident.OwnerKey(), "Cairo", "Dubai")
	if err != nil {
		t.Fatalf("FindByKey after failed turn: %v", err)
	}
	if record.Messages[1].Text != want {
		t.Fatalf("expected error message persisted, got %q", record.Messages[1].Text)
	}
}

func TestSendTurnRejectsWhileInFlight(t *testing.T) {
	p := &fakePlanner{
		response: []byte(`{"message": "done"}`),
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	svc, local := newTestChatService(p)
	ident := anonymousIdentity()

	done := make(chan error, 1)
	go func() {
		_, err := svc.SendTurn(context.Background(), ident, "Cairo", "Dubai", "first")
		done <- err
	}()

	<-p.started // first turn is now inside the webhook call

	_, err := svc.SendTurn(context.Background(), ident, "Cairo", "Dubai", "second")
	if !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight for concurrent send, got %v", err)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}

	// Exactly one webhook call happened and the rejected turn left no trace.
	if _, msgs := p.calls(); msgs != 1 {
		t.Fatalf("expected a single webhook call, got %d", msgs)
	}
	record, err := local.FindByKey(context.Background(), ident.OwnerKey(), "Cairo", "Dubai")
	if err != nil {
		t.Fatalf("FindByKey error: %v", err)
	}
	if len(record.Messages) != 2 {
		t.Fatalf("expected only the first turn persisted, got %d messages", len(record.Messages))
	}

	// A different conversation is not blocked by this one's guard.
	p.started = nil
	if _, err := svc.SendTurn(context.Background(), ident, "Doha", "Muscat", "other route"); err != nil {
		t.Fatalf("independent conversation blocked: %v", err)
	}
}

func TestDeleteConversationChecksOwnership(t *testing.T) {
	p := &fakePlanner{response: []byte(`{"message": "ok"}`)}
	svc, local := newTestChatService(p)
	owner := anonymousIdentity()
	stranger := anonymousIdentity()

	conv, err := svc.SendTurn(context.Background(), owner, "Cairo", "Dubai", "hi")
	if err != nil {
		t.Fatalf("SendTurn error: %v", err)
	}

	if err := svc.DeleteConversation(context.Background(), stranger, conv.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for foreign delete, got %v", err)
	}
	if err := svc.DeleteConversation(context.Background(), owner, conv.ID); err != nil {
		t.Fatalf("owner delete error: %v", err)
	}
	if _, err := local.FindByKey(context.Background(), owner.OwnerKey(), "Cairo", "Dubai"); err == nil {
		t.Fatalf("expected conversation gone after delete")
	}
}

func TestClearHistoryRemovesOnlyOwnersRecords(t *testing.T) {
	p := &fakePlanner{response: []byte(`{"message": "ok"}`)}
	svc, _ := newTestChatService(p)
	first := anonymousIdentity()
	second := anonymousIdentity()

	if _, err := svc.SendTurn(context.Background(), first, "Cairo", "Dubai", "a"); err != nil {
		t.Fatalf("SendTurn error: %v", err)
	}
	if _, err := svc.SendTurn(context.Background(), first, "Riyadh", "Amman", "b"); err != nil {
		t.Fatalf("SendTurn error: %v", err)
	}
	if _, err := svc.SendTurn(context.Background(), second, "Doha", "Muscat", "c"); err != nil {
		t.Fatalf("SendTurn error: %v", err)
	}

	if err := svc.ClearHistory(context.Background(), first); err != nil {
		t.Fatalf("ClearHistory error: %v", err)
	}

	mine, err := svc.ListConversations(context.Background(), first)
	if err != nil {
		t.Fatalf("ListConversations error: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("expected empty history after clear, got %d", len(mine))
	}
	theirs, err := svc.ListConversations(context.Background(), second)
	if err != nil {
		t.Fatalf("ListConversations error: %v", err)
	}
	if len(theirs) != 1 {
		t.Fatalf("expected other identity untouched, got %d records", len(theirs))
	}
}
