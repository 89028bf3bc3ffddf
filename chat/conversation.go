// Package chat owns the conversation data model and the session manager
// that drives a single user turn: appending the user message, picking the
// provider adapter, streaming response deltas into persisted state, and
// converting failures into user-visible error messages.
//
// The provider adapters themselves live in the provider package; chat only
// defines the Adapter contract so that both packages can depend on the
// domain types without an import cycle.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser     Role = "user"
	RoleModel    Role = "model"
	RoleSystem   Role = "system"
	RoleWorkflow Role = "workflow"
)

// Message is one entry in a conversation. The identifier is stable once
// created; Content (and the Pending flag) are the only fields mutated after
// creation, by streaming appends.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Pending   bool      `json:"pending,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Params are the sampling parameters sent with every turn. Values outside a
// provider's accepted range are clamped by the adapter, never rejected.
type Params struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// DefaultParams returns the sampling parameters applied to new conversations.
func DefaultParams() Params {
	return Params{Temperature: 0.7, TopP: 0.95}
}

// Conversation is an ordered, append-only message history plus the settings
// a turn is dispatched with. Messages are in send order; at most one message
// is pending at a time and it is always the last element.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Params       Params    `json:"params"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Spec is the provider resolution of Model, computed once when the
	// model is set (or when the conversation is loaded) rather than
	// re-parsed on every dispatch. A zero Spec means Model matched no
	// known provider family; dispatch then fails without a network call.
	Spec ModelSpec `json:"-"`
}

// Summary is the lightweight listing shape for a conversation.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewMessage creates a message with a fresh identifier.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// LastMessage returns a pointer to the final message, or nil for an empty
// conversation.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}
