package chat

import (
	"time"

	"github.com/google/uuid"
)

// Roles a message can carry within a session transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// WelcomeContent opens every fresh conversation.
const WelcomeContent = "Hi, I'm CoPilot, your CBT therapy assistant. How are you feeling today?"

// Message is one turn in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage allocates an identifier and timestamps the message.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Role:      role,
		Timestamp: time.Now().UTC(),
	}
}

// NewWelcomeMessage seeds a conversation with the assistant greeting.
func NewWelcomeMessage() Message {
	return NewMessage(RoleAssistant, WelcomeContent)
}
