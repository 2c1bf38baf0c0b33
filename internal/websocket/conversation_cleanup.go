package websocket

import (
	"time"

	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/usecase"
)

// ConversationCleanupService evicts idle in-memory conversations in the
// background so abandoned chats do not pin model sessions forever.
type ConversationCleanupService struct {
	conversations *usecase.ConversationService
	logger        *zap.Logger
	stopChan      chan struct{}
}

// NewConversationCleanupService creates a new cleanup service
func NewConversationCleanupService(conversations *usecase.ConversationService, logger *zap.Logger) *ConversationCleanupService {
	return &ConversationCleanupService{
		conversations: conversations,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *ConversationCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Conversation cleanup service started")
}

// Stop gracefully stops the cleanup service
func (s *ConversationCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Conversation cleanup service stopped")
}

func (s *ConversationCleanupService) cleanupLoop() {
	// Run cleanup every 30 minutes
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	// Run initial cleanup after 1 minute
	initialTimer := time.NewTimer(1 * time.Minute)
	defer initialTimer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-initialTimer.C:
			s.runCleanup()
			// Initial timer only runs once
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *ConversationCleanupService) runCleanup() {
	evicted := s.conversations.EvictIdle()
	s.logger.Info("Conversation cleanup completed",
		zap.Int("evicted", evicted),
		zap.Int("remaining", s.conversations.ActiveConversations()))
}
