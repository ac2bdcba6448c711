package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/copilotchat/copilot/backend/internal/model/chat"
	"github.com/copilotchat/copilot/backend/internal/service/completion"
	"github.com/copilotchat/copilot/backend/internal/service/session"
)

// State enumerates the controller's conversation states.
type State string

const (
	StateAwaitingCredential State = "awaiting_credential"
	StateIdle               State = "idle"
	StateAwaitingResponse   State = "awaiting_response"
	StateErrored            State = "errored"
)

var (
	ErrCredentialRequired = errors.New("a credential must be set before sending messages")
	ErrEmptyCredential    = errors.New("credential must not be empty")
	ErrEmptyMessage       = errors.New("message content must not be empty")
	ErrBusy               = errors.New("a completion request is already in flight")
)

// Completer produces an assistant reply for an ordered transcript.
type Completer interface {
	Complete(ctx context.Context, transcript []chat.Message) (string, error)
}

// Controller orchestrates one conversation: it holds the in-memory message
// list, drives the completion call, and hands every list change to the
// session service for persistence. At most one completion request is in
// flight at a time; sends while awaiting a response are rejected.
type Controller struct {
	mu        sync.Mutex
	creds     *completion.Credentials
	completer Completer
	sessions  *session.Service

	state     State
	sessionID string
	messages  []chat.Message
	lastError string
}

// NewController seeds a fresh conversation with the welcome message. The
// initial state depends on whether a credential is already set.
func NewController(creds *completion.Credentials, completer Completer, sessions *session.Service) *Controller {
	c := &Controller{
		creds:     creds,
		completer: completer,
		sessions:  sessions,
		state:     StateIdle,
		messages:  []chat.Message{chat.NewWelcomeMessage()},
	}
	if creds.Get() == "" {
		c.state = StateAwaitingCredential
	}
	return c
}

// SubmitCredential stores the trimmed credential and unlocks sending.
func (c *Controller) SubmitCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyCredential
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds.Set(key)
	if c.state == StateAwaitingCredential {
		c.state = StateIdle
	}
	return nil
}

// SendMessage appends a user message, requests a completion over the full
// transcript, and appends the assistant reply. On failure the user message
// is retained and the controller settles back to idle.
func (c *Controller) SendMessage(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	switch c.state {
	case StateAwaitingCredential:
		c.mu.Unlock()
		return ErrCredentialRequired
	case StateAwaitingResponse:
		c.mu.Unlock()
		return ErrBusy
	}

	if c.sessionID == "" {
		var initial *chat.Message
		if len(c.messages) > 0 {
			initial = &c.messages[0]
		}
		created, err := c.sessions.Create(initial)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.sessionID = created.ID
	}

	c.messages = append(c.messages, chat.NewMessage(chat.RoleUser, content))
	c.state = StateAwaitingResponse
	c.persistLocked()

	transcript := make([]chat.Message, len(c.messages))
	copy(transcript, c.messages)
	boundID := c.sessionID
	c.mu.Unlock()

	reply, err := c.completer.Complete(ctx, transcript)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		// Errored is transient: record the detail and settle back to idle.
		// The appended user message is kept so the user can resend.
		c.lastError = err.Error()
		c.state = StateErrored
		log.Printf("[chat] completion failed for session=%s: %v", boundID, err)
		c.state = StateIdle
		return err
	}

	if c.sessionID == boundID {
		c.messages = append(c.messages, chat.NewMessage(chat.RoleAssistant, reply))
		c.persistLocked()
	}
	c.state = StateIdle
	return nil
}

// SelectSession replaces the in-memory message list wholesale with the
// stored session's transcript and rebinds the controller to it.
func (c *Controller) SelectSession(id string) error {
	stored, err := c.sessions.GetByID(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = stored.ID
	c.messages = make([]chat.Message, len(stored.Messages))
	copy(c.messages, stored.Messages)
	if c.state != StateAwaitingCredential {
		c.state = StateIdle
	}
	return nil
}

// Restart creates a welcome-only successor of the given session, leaving
// the original untouched, and binds the controller to it.
func (c *Controller) Restart(id string) (chat.Session, error) {
	restarted, err := c.sessions.Restart(id)
	if err != nil {
		return chat.Session{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = restarted.ID
	c.messages = make([]chat.Message, len(restarted.Messages))
	copy(c.messages, restarted.Messages)
	if c.state != StateAwaitingCredential {
		c.state = StateIdle
	}
	return restarted, nil
}

// State returns the current conversation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the bound session id, empty when none is bound yet.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a copy of the in-memory message list.
func (c *Controller) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make([]chat.Message, len(c.messages))
	copy(copied, c.messages)
	return copied
}

// LastError returns the most recent completion failure detail, for
// observability only; user-facing surfaces show a generic notice.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// persistLocked pushes the in-memory list to the session service and, once
// the conversation has its first user message, derives a title.
func (c *Controller) persistLocked() {
	if c.sessionID == "" {
		return
	}

	messages := make([]chat.Message, len(c.messages))
	copy(messages, c.messages)
	if _, err := c.sessions.UpdateMessages(c.sessionID, messages); err != nil {
		log.Printf("[chat] failed to persist messages for session=%s: %v", c.sessionID, err)
	}

	if len(messages) == 2 && messages[1].Role == chat.RoleUser {
		title := session.GenerateTitle(messages)
		if _, err := c.sessions.Update(c.sessionID, session.Patch{Title: &title}); err != nil {
			log.Printf("[chat] failed to persist title for session=%s: %v", c.sessionID, err)
		}
	}
}
