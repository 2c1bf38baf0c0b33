package repositories

import (
	"context"

	"github.com/fbconsulting/leadpilot/domain/entities"
)

// LeadRepository persists captured leads. Records are keyed by email domain:
// once a lead has an email it is upserted under that domain, so repeated
// captures from the same company merge rather than duplicate.
type LeadRepository interface {
	Upsert(ctx context.Context, lead *entities.Lead) error
	GetByEmailDomain(ctx context.Context, domain string) (*entities.Lead, error)
	List(ctx context.Context, limit int) ([]*entities.Lead, error)
}

// ConversationRepository persists conversation transcripts.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *entities.Conversation) error
	Update(ctx context.Context, conversation *entities.Conversation) error
	GetLastByClientID(ctx context.Context, clientID string) (*entities.Conversation, error)
}

// ConfigStore is a small key/value store for user-supplied configuration
// (API keys and the like) that must survive restarts. The storage mechanism
// is an implementation detail so callers never touch files directly.
type ConfigStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Clear() error
}
