package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/domain/repositories"
)

// OpenAILLM implements the LargeLanguageModel interface using the OpenAI
// chat-completion API. It is the secondary provider, selected when only an
// OpenAI key is configured.
type OpenAILLM struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ repositories.LargeLanguageModel = (*OpenAILLM)(nil)

// NewOpenAILLM creates a new OpenAI LLM instance
func NewOpenAILLM(apiKey, model string, logger *zap.Logger) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
		logger.Info("Using default model", zap.String("model", model))
	}
	return &OpenAILLM{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}, nil
}

// GenerateChat creates a chat session seeded with history
func (o *OpenAILLM) GenerateChat(ctx context.Context, history []entities.ChatMessage) (repositories.ChatSession, error) {
	return &openAIChatSession{
		client:  o.client,
		model:   o.model,
		logger:  o.logger,
		history: append([]entities.ChatMessage(nil), history...),
	}, nil
}

type openAIChatSession struct {
	client  *openai.Client
	model   string
	logger  *zap.Logger
	history []entities.ChatMessage
}

var _ repositories.ChatSession = (*openAIChatSession)(nil)

func (s *openAIChatSession) SendMessage(ctx context.Context, message entities.ChatMessage) (entities.ChatMessage, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(s.history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range s.history {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message.Content,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: msgs,
	})
	if err != nil {
		s.logger.Error("OpenAI chat completion failed", zap.Error(err))
		return entities.ChatMessage{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		s.logger.Warn("OpenAI returned no choices")
		return entities.ChatMessage{}, fmt.Errorf("no completion choices returned")
	}

	reply := entities.NewChatMessage(entities.RoleAssistant, resp.Choices[0].Message.Content)
	s.history = append(s.history, message, reply)
	return reply, nil
}

func (s *openAIChatSession) History() ([]entities.ChatMessage, error) {
	return append([]entities.ChatMessage(nil), s.history...), nil
}

func openAIRole(role entities.MessageRole) string {
	switch role {
	case entities.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case entities.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
