package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/domain/repositories"
	"github.com/fbconsulting/leadpilot/internal/lead"
	"github.com/fbconsulting/leadpilot/internal/respond"
)

// ConversationService runs the chat pipeline for every connected client:
// enrich the lead from the message, advance the funnel stage, get a reply
// from the model (or the canned fallback engine when no model is available),
// and persist what was learned.
type ConversationService struct {
	llm           repositories.LargeLanguageModel
	tts           repositories.TextToSpeech
	stt           repositories.SpeechToText
	leads         repositories.LeadRepository         // nil disables lead persistence
	conversations repositories.ConversationRepository // nil disables transcript persistence
	logger        *zap.Logger

	mu           sync.Mutex
	active       map[string]*entities.Conversation
	chatSessions map[string]repositories.ChatSession
}

// NewConversationService creates a new conversation service
func NewConversationService(
	llm repositories.LargeLanguageModel,
	tts repositories.TextToSpeech,
	stt repositories.SpeechToText,
	leads repositories.LeadRepository,
	conversations repositories.ConversationRepository,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		llm:           llm,
		tts:           tts,
		stt:           stt,
		leads:         leads,
		conversations: conversations,
		logger:        logger,
		active:        make(map[string]*entities.Conversation),
		chatSessions:  make(map[string]repositories.ChatSession),
	}
}

// Converse processes one user message end to end and returns the assistant
// reply. The conversation for clientID is created on first use and resumed
// from storage when available.
func (s *ConversationService) Converse(ctx context.Context, clientID string, message entities.ChatMessage) (entities.ChatMessage, error) {
	if message.IsEmpty() {
		return entities.ChatMessage{}, fmt.Errorf("message cannot be empty")
	}

	conversation, chatSession, err := s.resume(ctx, clientID)
	if err != nil {
		return entities.ChatMessage{}, err
	}

	s.mu.Lock()
	conversation.Append(message)

	// Lead enrichment happens on every user message, model or no model.
	updatedLead, discovered := lead.Extract(message.Content, conversation.Lead)
	updatedLead.Stage = lead.UpdateStage(updatedLead, message.Content, conversation.UserMessageCount())
	conversation.Lead = updatedLead
	s.mu.Unlock()

	if len(discovered) > 0 {
		s.logger.Info("Lead enriched",
			zap.String("clientID", clientID),
			zap.Strings("discovered", discovered),
			zap.String("stage", string(updatedLead.Stage)))
	}

	reply := s.generateReply(ctx, clientID, chatSession, message, updatedLead)

	s.mu.Lock()
	conversation.Append(reply)
	s.mu.Unlock()

	s.persist(ctx, conversation)

	return reply, nil
}

// generateReply asks the model, falling back to the persona template engine
// so the chat never goes silent.
func (s *ConversationService) generateReply(ctx context.Context, clientID string, chatSession repositories.ChatSession, message entities.ChatMessage, leadInfo entities.Lead) entities.ChatMessage {
	if chatSession != nil {
		reply, err := chatSession.SendMessage(ctx, message)
		if err == nil {
			return reply
		}
		s.logger.Warn("Model reply failed, using fallback engine",
			zap.String("clientID", clientID),
			zap.Error(err))
	}

	persona := respond.SelectPersona(leadInfo, "")
	return entities.NewChatMessage(entities.RoleAssistant, respond.Generate(message.Content, leadInfo, persona))
}

// Synthesize converts reply text into a stream of audio chunks.
func (s *ConversationService) Synthesize(ctx context.Context, text string) (<-chan []byte, error) {
	if s.tts == nil {
		return nil, fmt.Errorf("text-to-speech is not configured")
	}
	return s.tts.ConvertTextToSpeech(ctx, text)
}

// Transcribe converts an audio blob into text.
func (s *ConversationService) Transcribe(ctx context.Context, audio []byte, config repositories.AudioConfig) (string, error) {
	if s.stt == nil {
		return "", fmt.Errorf("speech-to-text is not configured")
	}
	return s.stt.TranscribeAudio(ctx, audio, config)
}

// Lead returns a copy of the current lead for a client.
func (s *ConversationService) Lead(clientID string) (entities.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.active[clientID]
	if !ok {
		return entities.Lead{}, false
	}
	return conversation.Lead, true
}

// resume returns the active conversation and chat session for a client,
// loading the last stored transcript on first contact.
func (s *ConversationService) resume(ctx context.Context, clientID string) (*entities.Conversation, repositories.ChatSession, error) {
	s.mu.Lock()
	conversation, ok := s.active[clientID]
	chatSession := s.chatSessions[clientID]
	s.mu.Unlock()
	if ok {
		return conversation, chatSession, nil
	}

	if s.conversations != nil {
		stored, err := s.conversations.GetLastByClientID(ctx, clientID)
		if err != nil {
			s.logger.Error("Failed to load stored conversation",
				zap.String("clientID", clientID),
				zap.Error(err))
		} else if stored != nil && !stored.IsIdle() {
			conversation = stored
		}
	}
	if conversation == nil {
		conversation = entities.NewConversation(clientID)
	}

	if s.llm != nil {
		session, err := s.llm.GenerateChat(ctx, conversation.Messages)
		if err != nil {
			s.logger.Warn("Failed to create chat session, fallback engine only",
				zap.String("clientID", clientID),
				zap.Error(err))
		} else {
			chatSession = session
		}
	}

	s.mu.Lock()
	s.active[clientID] = conversation
	if chatSession != nil {
		s.chatSessions[clientID] = chatSession
	}
	s.mu.Unlock()

	return conversation, chatSession, nil
}

// persist writes the transcript and, once the lead has contact info, the
// lead record. Storage errors are logged, never surfaced to the chat.
func (s *ConversationService) persist(ctx context.Context, conversation *entities.Conversation) {
	if s.conversations != nil {
		var err error
		if conversation.ID == "" {
			err = s.conversations.Create(ctx, conversation)
		} else {
			err = s.conversations.Update(ctx, conversation)
		}
		if err != nil {
			s.logger.Error("Failed to persist conversation",
				zap.String("clientID", conversation.ClientID),
				zap.Error(err))
		}
	}

	if s.leads != nil && conversation.Lead.HasContact() {
		leadCopy := conversation.Lead
		if err := s.leads.Upsert(ctx, &leadCopy); err != nil {
			s.logger.Error("Failed to upsert lead",
				zap.String("domain", conversation.Lead.EmailDomain()),
				zap.Error(err))
		} else {
			conversation.Lead.UpdatedAt = leadCopy.UpdatedAt
		}
	}
}

// EvictIdle drops in-memory conversations that have gone quiet. Transcripts
// already persisted stay in storage; this only frees memory and model
// sessions. Returns how many were evicted.
func (s *ConversationService) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for clientID, conversation := range s.active {
		if conversation.IsIdle() {
			delete(s.active, clientID)
			delete(s.chatSessions, clientID)
			evicted++
		}
	}
	return evicted
}

// ActiveConversations reports how many conversations are held in memory.
func (s *ConversationService) ActiveConversations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Forget drops a client's in-memory state immediately.
func (s *ConversationService) Forget(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, clientID)
	delete(s.chatSessions, clientID)
}
