package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copilotchat/copilot/backend/internal/model/chat"
	"github.com/copilotchat/copilot/backend/internal/service/events"
	"github.com/copilotchat/copilot/backend/internal/store"
)

var ErrSessionNotFound = errors.New("session not found")

// titleMaxLen bounds generated titles; longer first lines are cut to
// titleCutLen characters plus an ellipsis.
const (
	titleMaxLen = 30
	titleCutLen = 27
)

// Patch carries the fields Update merges into a session. Nil fields are
// left untouched.
type Patch struct {
	Title    *string
	Messages []chat.Message
}

// Service owns all writes to the persisted session collection. Every
// mutation is a full read-modify-write over the store, serialized by the
// mutex.
type Service struct {
	mu    sync.Mutex
	store store.Store
	hub   *events.Hub
}

// NewService wraps the given store. The hub may be nil when no event
// fan-out is needed.
func NewService(st store.Store, hub *events.Hub) *Service {
	return &Service{store: st, hub: hub}
}

// Create provisions a new session, optionally seeded with one message, and
// prepends it to the stored collection (newest first).
func (s *Service) Create(initial *chat.Message) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     "Session " + dateLabel(now),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []chat.Message{},
	}
	if initial != nil {
		session.Messages = []chat.Message{*initial}
	}

	sessions := append([]chat.Session{session}, s.store.Load()...)
	if err := s.store.Save(sessions); err != nil {
		return chat.Session{}, err
	}

	s.publish(events.SessionCreated, session)
	return session, nil
}

// GetAll returns the stored collection, newest first.
func (s *Service) GetAll() []chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// GetByID retrieves a session by identifier.
func (s *Service) GetByID(id string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.store.Load() {
		if session.ID == id {
			return session, nil
		}
	}
	return chat.Session{}, ErrSessionNotFound
}

// Update merges the patch into the matching session and forces UpdatedAt
// forward. An unknown id returns ErrSessionNotFound, callers must check.
func (s *Service) Update(id string, patch Patch) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, patch)
}

// UpdateMessages replaces the session's message list.
func (s *Service) UpdateMessages(id string, messages []chat.Message) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, Patch{Messages: messages})
}

func (s *Service) updateLocked(id string, patch Patch) (chat.Session, error) {
	sessions := s.store.Load()
	for i := range sessions {
		if sessions[i].ID != id {
			continue
		}
		if patch.Title != nil {
			sessions[i].Title = *patch.Title
		}
		if patch.Messages != nil {
			sessions[i].Messages = patch.Messages
		}
		sessions[i].UpdatedAt = time.Now().UTC()

		if err := s.store.Save(sessions); err != nil {
			return chat.Session{}, err
		}
		s.publish(events.SessionUpdated, sessions[i])
		return sessions[i], nil
	}
	return chat.Session{}, ErrSessionNotFound
}

// Delete removes the matching session. Deleting an unknown id is a no-op.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.store.Load()
	filtered := sessions[:0]
	removed := false
	for _, session := range sessions {
		if session.ID == id {
			removed = true
			continue
		}
		filtered = append(filtered, session)
	}
	if !removed {
		return nil
	}

	if err := s.store.Save(filtered); err != nil {
		return err
	}
	s.publish(events.SessionDeleted, chat.Session{ID: id})
	return nil
}

// Restart creates a fresh session carrying only the welcome message and a
// title marking it as a restart of the original. The original session is
// left untouched.
func (s *Service) Restart(id string) (chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.store.Load()
	var original *chat.Session
	for i := range sessions {
		if sessions[i].ID == id {
			original = &sessions[i]
			break
		}
	}
	if original == nil {
		return chat.Session{}, ErrSessionNotFound
	}

	now := time.Now().UTC()
	restarted := chat.Session{
		ID:        uuid.NewString(),
		Title:     original.Title + " (Restarted)",
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []chat.Message{chat.NewWelcomeMessage()},
	}

	if err := s.store.Save(append([]chat.Session{restarted}, sessions...)); err != nil {
		return chat.Session{}, err
	}
	s.publish(events.SessionCreated, restarted)
	return restarted, nil
}

func (s *Service) publish(eventType string, session chat.Session) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(events.Event{
		Type:      eventType,
		SessionID: session.ID,
		Title:     session.Title,
		UpdatedAt: session.UpdatedAt,
	})
}

// GenerateTitle derives a session title from the first user message: its
// first line, trimmed, cut to titleMaxLen characters. Transcripts without
// user content fall back to a date-stamped placeholder.
func GenerateTitle(messages []chat.Message) string {
	var first *chat.Message
	for i := range messages {
		if messages[i].Role == chat.RoleUser {
			first = &messages[i]
			break
		}
	}
	if first == nil {
		return "New Session " + dateLabel(time.Now())
	}

	line := first.Content
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)

	if runes := []rune(line); len(runes) > titleMaxLen {
		line = string(runes[:titleCutLen]) + "..."
	}
	if line == "" {
		return "Session " + dateLabel(time.Now())
	}
	return line
}

func dateLabel(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
