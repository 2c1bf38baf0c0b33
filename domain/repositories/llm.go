package repositories

import (
	"context"

	"github.com/fbconsulting/leadpilot/domain/entities"
)

// LargeLanguageModel abstracts any chat/LLM provider.
type LargeLanguageModel interface {
	// GenerateChat creates a chat session seeded with history.
	GenerateChat(ctx context.Context, history []entities.ChatMessage) (ChatSession, error)
}

// ChatSession represents an ongoing conversation with the model. Attached
// media items are forwarded to providers that accept them and ignored
// otherwise.
type ChatSession interface {
	SendMessage(ctx context.Context, message entities.ChatMessage) (entities.ChatMessage, error)
	History() ([]entities.ChatMessage, error)
}
