package store

import "github.com/copilotchat/copilot/backend/internal/model/chat"

// Store holds the canonical session collection as a single document.
// Load recovers from absent or malformed data by returning an empty
// collection; session history is not safety-critical. Save replaces the
// whole collection, there is no merge.
type Store interface {
	Load() []chat.Session
	Save(sessions []chat.Session) error
}
