package llm

import (
	"context"
	"fmt"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/domain/repositories"
)

// MockLLM is a canned-response provider used in tests and when no API key is
// configured.
type MockLLM struct{}

var _ repositories.LargeLanguageModel = (*MockLLM)(nil)

// NewMockLLM creates a new mock LLM
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// GenerateChat implements LargeLanguageModel
func (m *MockLLM) GenerateChat(ctx context.Context, history []entities.ChatMessage) (repositories.ChatSession, error) {
	return &mockChatSession{
		history: append([]entities.ChatMessage(nil), history...),
	}, nil
}

type mockChatSession struct {
	history []entities.ChatMessage
}

var _ repositories.ChatSession = (*mockChatSession)(nil)

func (m *mockChatSession) SendMessage(ctx context.Context, message entities.ChatMessage) (entities.ChatMessage, error) {
	m.history = append(m.history, message)

	var response string
	switch {
	case len(message.Content) > 0:
		response = fmt.Sprintf("Thanks for sharing! I heard: %q. What else would you like to know about our AI services?", message.Content)
	default:
		response = "Hello! I'm the FB Consulting assistant. How can I help you with AI automation today?"
	}

	reply := entities.NewChatMessage(entities.RoleAssistant, response)
	m.history = append(m.history, reply)
	return reply, nil
}

func (m *mockChatSession) History() ([]entities.ChatMessage, error) {
	return append([]entities.ChatMessage(nil), m.history...), nil
}
