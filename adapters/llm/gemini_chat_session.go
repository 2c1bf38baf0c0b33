package llm

import (
	"context"
	"encoding/base64"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/domain/repositories"
)

// systemPrompt frames the assistant as a sales consultant for the agency
// site. It is fixed; persona flavoring happens in the fallback engine, not
// here.
const systemPrompt = `You are the AI assistant for FB Consulting, an AI automation agency. ` +
	`You help visitors understand our services (custom chatbots, voice interfaces, ` +
	`workflow automation, and system integration), answer questions about pricing and ` +
	`process, and guide interested prospects toward booking a consultation. ` +
	`Be concise, friendly, and concrete. Never invent case studies or prices beyond ` +
	`what you have been told.`

// fallbackReplies are used when the model errors out or returns nothing, so
// the chat never goes silent.
var fallbackReplies = []string{
	"I'm sorry, I didn't quite catch that. Could you rephrase your question?",
	"Let me think about that differently. Could you tell me a bit more about what you're looking for?",
	"I'm having a little trouble right now. In the meantime, is there anything about our services I can clarify?",
}

var geminiSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	},
}

// GeminiChatSession implements the ChatSession interface
type GeminiChatSession struct {
	client  *genai.Client
	config  GeminiConfig
	logger  *zap.Logger
	history []*genai.Content
}

var _ repositories.ChatSession = (*GeminiChatSession)(nil)

// NewGeminiChatSession creates a chat session seeded with prior transcript
func NewGeminiChatSession(client *genai.Client, config GeminiConfig, logger *zap.Logger, history []entities.ChatMessage) *GeminiChatSession {
	return &GeminiChatSession{
		client:  client,
		config:  config,
		logger:  logger,
		history: convertEntitiesToGeminiFormat(history),
	}
}

// SendMessage sends a message and gets a response, updating the history.
// Attached images and documents ride along as inline parts.
func (s *GeminiChatSession) SendMessage(ctx context.Context, message entities.ChatMessage) (entities.ChatMessage, error) {
	var contents []*genai.Content
	contents = append(contents, genai.NewContentFromText(systemPrompt, genai.RoleUser))
	contents = append(contents, s.history...)

	userContent := buildUserContent(message, s.logger)
	contents = append(contents, userContent)

	config := &genai.GenerateContentConfig{
		SafetySettings:  geminiSafetySettings,
		Temperature:     genai.Ptr(s.config.Temperature),
		TopP:            genai.Ptr(s.config.TopP),
		TopK:            genai.Ptr(s.config.TopK),
		MaxOutputTokens: int32(s.config.MaxOutputTokens),
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.config.TimeoutSeconds)*time.Second)
	defer cancel()

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		response, err = s.client.Models.GenerateContent(ctx, s.config.Model, contents, config)
		if err == nil {
			break
		}

		s.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < 2 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}

	if err != nil {
		s.logger.Error("Failed to send message in chat session", zap.Error(err))
		return s.createFallbackResponse(), nil // Return fallback instead of error
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		s.logger.Warn("No content generated in chat session")
		return s.createFallbackResponse(), nil
	}

	var responseText string
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			responseText += part.Text
		}
	}

	if responseText == "" {
		s.logger.Warn("Empty response in chat session")
		return s.createFallbackResponse(), nil
	}

	responseContent := genai.NewContentFromText(responseText, genai.RoleModel)
	s.history = append(s.history, userContent, responseContent)

	responseMessage := entities.NewChatMessage(entities.RoleAssistant, responseText)

	s.logger.Info("Chat session message processed",
		zap.String("user_message", preview(message.Content)),
		zap.String("response_preview", preview(responseText)),
		zap.Int("history_length", len(s.history)))

	return responseMessage, nil
}

// History returns the current conversation history
func (s *GeminiChatSession) History() ([]entities.ChatMessage, error) {
	return convertGeminiToEntitiesFormat(s.history), nil
}

// createFallbackResponse creates a fallback response message
func (s *GeminiChatSession) createFallbackResponse() entities.ChatMessage {
	// Simple pseudo-random selection based on current time
	index := int(time.Now().UnixNano()) % len(fallbackReplies)
	reply := fallbackReplies[index]

	s.history = append(s.history, genai.NewContentFromText(reply, genai.RoleModel))
	return entities.NewChatMessage(entities.RoleAssistant, reply)
}

// buildUserContent packs a chat message plus attachments into one Gemini
// content. Attachments that fail to decode are skipped rather than failing
// the whole message.
func buildUserContent(message entities.ChatMessage, logger *zap.Logger) *genai.Content {
	var parts []*genai.Part
	if message.Content != "" {
		parts = append(parts, genai.NewPartFromText(message.Content))
	}
	for _, item := range message.MediaItems {
		if item.Data == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(item.Data)
		if err != nil {
			logger.Warn("Skipping undecodable attachment",
				zap.String("filename", item.Filename),
				zap.Error(err))
			continue
		}
		parts = append(parts, genai.NewPartFromBytes(raw, item.MimeType))
	}
	if len(parts) == 0 {
		parts = append(parts, genai.NewPartFromText(""))
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}

func preview(text string) string {
	if len(text) > 50 {
		return text[:50]
	}
	return text
}

// convertEntitiesToGeminiFormat converts transcript messages to Gemini format
func convertEntitiesToGeminiFormat(messages []entities.ChatMessage) []*genai.Content {
	var contents []*genai.Content

	for _, msg := range messages {
		var role genai.Role
		switch msg.Role {
		case entities.RoleUser:
			role = genai.RoleUser
		case entities.RoleAssistant:
			role = genai.RoleModel
		case entities.RoleSystem:
			role = genai.RoleUser // Treat system messages as user messages in Gemini
		default:
			continue // Error-role bubbles are UI-only, never model context
		}

		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}

	return contents
}

// convertGeminiToEntitiesFormat converts Gemini content to transcript messages
func convertGeminiToEntitiesFormat(contents []*genai.Content) []entities.ChatMessage {
	var messages []entities.ChatMessage

	for _, content := range contents {
		var role entities.MessageRole
		switch content.Role {
		case genai.RoleUser:
			role = entities.RoleUser
		case genai.RoleModel:
			role = entities.RoleAssistant
		default:
			role = entities.RoleUser
		}

		var text string
		for _, part := range content.Parts {
			if part.Text != "" {
				text += part.Text
			}
		}

		if text != "" {
			messages = append(messages, entities.ChatMessage{
				Role:    role,
				Content: text,
			})
		}
	}

	return messages
}
