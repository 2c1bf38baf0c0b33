package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/domain/repositories"
)

// LeadRepository persists leads keyed by email domain, so repeated captures
// from the same company merge into one record instead of piling up
// duplicates.
type LeadRepository struct {
	collection *mongo.Collection
}

var _ repositories.LeadRepository = (*LeadRepository)(nil)

// NewLeadRepository creates a new MongoDB lead repository
func NewLeadRepository(db *mongo.Database) *LeadRepository {
	return &LeadRepository{
		collection: db.Collection("leads"),
	}
}

// Upsert implements repositories.LeadRepository. Leads without an email have
// no key yet and are rejected.
func (r *LeadRepository) Upsert(ctx context.Context, lead *entities.Lead) error {
	if lead == nil {
		return errors.New("lead cannot be nil")
	}
	domain := lead.EmailDomain()
	if domain == "" {
		return errors.New("lead has no email domain to key on")
	}

	lead.UpdatedAt = time.Now()

	update := bson.M{
		"$set": bson.M{
			"name":       lead.Name,
			"email":      lead.Email,
			"company":    lead.Company,
			"role":       lead.Role,
			"stage":      lead.Stage,
			"updated_at": lead.UpdatedAt,
		},
		// Labels accumulate across conversations from the same domain.
		"$addToSet": bson.M{
			"interests":  bson.M{"$each": lead.Interests},
			"challenges": bson.M{"$each": lead.Challenges},
		},
	}

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": domain},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert lead for domain %s: %w", domain, err)
	}

	return nil
}

// GetByEmailDomain implements repositories.LeadRepository
func (r *LeadRepository) GetByEmailDomain(ctx context.Context, domain string) (*entities.Lead, error) {
	if domain == "" {
		return nil, errors.New("domain cannot be empty")
	}

	var lead entities.Lead
	err := r.collection.FindOne(ctx, bson.M{"_id": domain}).Decode(&lead)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No lead found, return nil without error
		}
		return nil, fmt.Errorf("failed to get lead for domain %s: %w", domain, err)
	}

	return &lead, nil
}

// List implements repositories.LeadRepository, most recently updated first
func (r *LeadRepository) List(ctx context.Context, limit int) ([]*entities.Lead, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.M{"updated_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer cursor.Close(ctx)

	var leads []*entities.Lead
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, fmt.Errorf("failed to decode leads: %w", err)
	}

	return leads, nil
}
