package entities

import (
	"errors"
	"time"
)

// Conversation is one chat session between a browser client and the
// assistant. It carries the transcript used as LLM context and the lead
// record enriched from the user's messages.
type Conversation struct {
	ID            string        `json:"id" bson:"_id,omitempty"`
	ClientID      string        `json:"client_id" bson:"client_id"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	LastMessageAt time.Time     `json:"last_message_at" bson:"last_message_at"`
	Messages      []ChatMessage `json:"messages" bson:"messages"`
	Lead          Lead          `json:"lead" bson:"lead"`
}

// NewConversation creates an empty conversation for a client.
func NewConversation(clientID string) *Conversation {
	now := time.Now()
	return &Conversation{
		ClientID:      clientID,
		CreatedAt:     now,
		LastMessageAt: now,
		Messages:      make([]ChatMessage, 0),
		Lead:          NewLead(),
	}
}

// Append adds a message to the transcript and bumps the activity timestamp.
func (c *Conversation) Append(message ChatMessage) {
	c.Messages = append(c.Messages, message)
	c.LastMessageAt = time.Now()
}

// UserMessageCount counts messages sent by the user, which drives the
// message-count stage heuristic.
func (c *Conversation) UserMessageCount() int {
	n := 0
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// idleTimeout is how long a conversation may sit without messages before it
// is considered abandoned and eligible for eviction.
const idleTimeout = 30 * time.Minute

// IsIdle reports whether the conversation has been inactive past the idle
// timeout.
func (c *Conversation) IsIdle() bool {
	return time.Since(c.LastMessageAt) > idleTimeout
}

// Validate checks required fields before persistence.
func (c *Conversation) Validate() error {
	if c.ClientID == "" {
		return errors.New("client_id is required")
	}
	return nil
}
