package chat_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	modelchat "github.com/copilotchat/copilot/backend/internal/model/chat"
	chat "github.com/copilotchat/copilot/backend/internal/service/chat"
	"github.com/copilotchat/copilot/backend/internal/service/completion"
	session "github.com/copilotchat/copilot/backend/internal/service/session"
	"github.com/copilotchat/copilot/backend/internal/store"
)

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]modelchat.Message
}

func (f *fakeCompleter) Complete(_ context.Context, transcript []modelchat.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make([]modelchat.Message, len(transcript))
	copy(copied, transcript)
	f.calls = append(f.calls, copied)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newFixture(credential string, completer chat.Completer) (*chat.Controller, *session.Service) {
	creds := completion.NewCredentials()
	if credential != "" {
		creds.Set(credential)
	}
	sessions := session.NewService(store.NewMemoryStore(), nil)
	return chat.NewController(creds, completer, sessions), sessions
}

func TestSendFirstMessage(t *testing.T) {
	completer := &fakeCompleter{reply: "That sounds heavy. What thought came up first?"}
	ctrl, sessions := newFixture("sk-test", completer)

	if ctrl.State() != chat.StateIdle {
		t.Fatalf("expected idle start with credential set, got %s", ctrl.State())
	}

	if err := ctrl.SendMessage(context.Background(), "I feel anxious today"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}

	messages := ctrl.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected welcome+user+assistant, got %d messages", len(messages))
	}
	if messages[0].Content != modelchat.WelcomeContent {
		t.Fatal("welcome message lost")
	}
	if messages[1].Role != modelchat.RoleUser || messages[1].Content != "I feel anxious today" {
		t.Fatalf("unexpected user message: %+v", messages[1])
	}
	if messages[2].Role != modelchat.RoleAssistant || messages[2].Content != completer.reply {
		t.Fatalf("unexpected assistant message: %+v", messages[2])
	}

	// The completion call must have seen the just-appended user message.
	if len(completer.calls) != 1 || len(completer.calls[0]) != 2 {
		t.Fatalf("unexpected transcript sent to completer: %+v", completer.calls)
	}

	persisted, err := sessions.GetByID(ctrl.SessionID())
	if err != nil {
		t.Fatalf("bound session not persisted: %v", err)
	}
	if persisted.Title != "I feel anxious today" {
		t.Fatalf("title not derived from first user message: %q", persisted.Title)
	}
	if len(persisted.Messages) != 3 {
		t.Fatalf("persisted session has %d messages", len(persisted.Messages))
	}
	if persisted.UpdatedAt.Before(persisted.CreatedAt) {
		t.Fatal("updatedAt must not precede createdAt")
	}
	if ctrl.State() != chat.StateIdle {
		t.Fatalf("expected idle after success, got %s", ctrl.State())
	}
}

func TestSendMessageWithoutCredential(t *testing.T) {
	ctrl, sessions := newFixture("", &fakeCompleter{reply: "unused"})

	if ctrl.State() != chat.StateAwaitingCredential {
		t.Fatalf("expected awaiting_credential start, got %s", ctrl.State())
	}

	err := ctrl.SendMessage(context.Background(), "hello")
	if !errors.Is(err, chat.ErrCredentialRequired) {
		t.Fatalf("expected ErrCredentialRequired, got %v", err)
	}
	if len(ctrl.Messages()) != 1 {
		t.Fatal("no message may be appended without a credential")
	}
	if ctrl.State() != chat.StateAwaitingCredential {
		t.Fatalf("state must not change, got %s", ctrl.State())
	}
	if len(sessions.GetAll()) != 0 {
		t.Fatal("no session may be created without a credential")
	}
}

func TestSubmitCredential(t *testing.T) {
	ctrl, _ := newFixture("", &fakeCompleter{})

	if err := ctrl.SubmitCredential("   "); !errors.Is(err, chat.ErrEmptyCredential) {
		t.Fatalf("expected ErrEmptyCredential, got %v", err)
	}
	if ctrl.State() != chat.StateAwaitingCredential {
		t.Fatal("blank credential must not unlock the controller")
	}

	if err := ctrl.SubmitCredential("  sk-test  "); err != nil {
		t.Fatalf("SubmitCredential err: %v", err)
	}
	if ctrl.State() != chat.StateIdle {
		t.Fatalf("expected idle after credential, got %s", ctrl.State())
	}
}

func TestSendMessageRemoteFailure(t *testing.T) {
	completer := &fakeCompleter{err: &completion.CompletionError{Message: "rate limited"}}
	ctrl, sessions := newFixture("sk-test", completer)

	err := ctrl.SendMessage(context.Background(), "hello there")
	if err == nil {
		t.Fatal("expected completion failure to surface")
	}

	messages := ctrl.Messages()
	if len(messages) != 2 {
		t.Fatalf("user message must be retained on failure, got %d messages", len(messages))
	}
	if messages[1].Role != modelchat.RoleUser {
		t.Fatalf("expected retained user message, got %+v", messages[1])
	}
	if ctrl.State() != chat.StateIdle {
		t.Fatalf("controller must settle back to idle, got %s", ctrl.State())
	}
	if !strings.Contains(ctrl.LastError(), "rate limited") {
		t.Fatalf("failure detail not recorded: %q", ctrl.LastError())
	}

	persisted, err := sessions.GetByID(ctrl.SessionID())
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if len(persisted.Messages) != 2 {
		t.Fatalf("persisted session must retain the user message, got %d", len(persisted.Messages))
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	ctrl, _ := newFixture("sk-test", &fakeCompleter{reply: "unused"})

	if err := ctrl.SendMessage(context.Background(), "  \n "); !errors.Is(err, chat.ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(ctrl.Messages()) != 1 {
		t.Fatal("blank content must not be appended")
	}
}

type blockingCompleter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCompleter) Complete(_ context.Context, _ []modelchat.Message) (string, error) {
	close(b.started)
	<-b.release
	return "done", nil
}

func TestSendMessageWhileAwaitingResponse(t *testing.T) {
	completer := &blockingCompleter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	ctrl, _ := newFixture("sk-test", completer)

	done := make(chan error, 1)
	go func() {
		done <- ctrl.SendMessage(context.Background(), "first")
	}()

	<-completer.started
	if ctrl.State() != chat.StateAwaitingResponse {
		t.Fatalf("expected awaiting_response, got %s", ctrl.State())
	}

	if err := ctrl.SendMessage(context.Background(), "second"); !errors.Is(err, chat.ErrBusy) {
		t.Fatalf("expected ErrBusy for concurrent send, got %v", err)
	}

	close(completer.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first send failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first send did not finish")
	}

	if got := len(ctrl.Messages()); got != 3 {
		t.Fatalf("expected exactly one exchange, got %d messages", got)
	}
}

func TestSelectSessionReplacesMessages(t *testing.T) {
	ctrl, sessions := newFixture("sk-test", &fakeCompleter{reply: "ok"})

	welcome := modelchat.NewWelcomeMessage()
	other, _ := sessions.Create(&welcome)
	sessions.UpdateMessages(other.ID, []modelchat.Message{
		welcome,
		modelchat.NewMessage(modelchat.RoleUser, "older conversation"),
	})

	if err := ctrl.SelectSession(other.ID); err != nil {
		t.Fatalf("SelectSession err: %v", err)
	}
	if ctrl.SessionID() != other.ID {
		t.Fatal("controller not rebound")
	}
	messages := ctrl.Messages()
	if len(messages) != 2 || messages[1].Content != "older conversation" {
		t.Fatalf("message list not replaced wholesale: %+v", messages)
	}

	if err := ctrl.SelectSession("missing"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestControllerRestart(t *testing.T) {
	ctrl, sessions := newFixture("sk-test", &fakeCompleter{reply: "reply"})

	if err := ctrl.SendMessage(context.Background(), "long conversation"); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	originalID := ctrl.SessionID()

	restarted, err := ctrl.Restart(originalID)
	if err != nil {
		t.Fatalf("Restart err: %v", err)
	}
	if ctrl.SessionID() != restarted.ID {
		t.Fatal("controller not bound to restarted session")
	}
	if got := ctrl.Messages(); len(got) != 1 || got[0].Content != modelchat.WelcomeContent {
		t.Fatalf("restarted conversation must hold only the welcome message, got %+v", got)
	}

	original, err := sessions.GetByID(originalID)
	if err != nil {
		t.Fatalf("original session gone: %v", err)
	}
	if len(original.Messages) != 3 {
		t.Fatalf("original session mutated, got %d messages", len(original.Messages))
	}
	if restarted.Title != original.Title+" (Restarted)" {
		t.Fatalf("unexpected restart title: %q", restarted.Title)
	}
}
