package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fbconsulting/leadpilot/domain/entities"
	"github.com/fbconsulting/leadpilot/domain/repositories"
)

type ConversationRepository struct {
	collection *mongo.Collection
}

var _ repositories.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new MongoDB conversation repository
func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{
		collection: db.Collection("conversations"),
	}
}

// Create implements repositories.ConversationRepository
func (r *ConversationRepository) Create(ctx context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if err := conversation.Validate(); err != nil {
		return err
	}

	now := time.Now()
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	if conversation.LastMessageAt.IsZero() {
		conversation.LastMessageAt = now
	}

	doc := bson.M{
		"client_id":       conversation.ClientID,
		"created_at":      conversation.CreatedAt,
		"last_message_at": conversation.LastMessageAt,
		"messages":        conversation.Messages,
		"lead":            conversation.Lead,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	// Set the generated ID back on the conversation
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		conversation.ID = oid.Hex()
	}

	return nil
}

// GetLastByClientID implements repositories.ConversationRepository
func (r *ConversationRepository) GetLastByClientID(ctx context.Context, clientID string) (*entities.Conversation, error) {
	if clientID == "" {
		return nil, errors.New("client ID cannot be empty")
	}

	filter := bson.M{"client_id": clientID}
	opts := options.FindOne().SetSort(bson.M{"last_message_at": -1})

	var conversation entities.Conversation
	err := r.collection.FindOne(ctx, filter, opts).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // No conversation found, return nil without error
		}
		return nil, fmt.Errorf("failed to get last conversation for client %s: %w", clientID, err)
	}

	return &conversation, nil
}

// Update implements repositories.ConversationRepository
func (r *ConversationRepository) Update(ctx context.Context, conversation *entities.Conversation) error {
	if conversation == nil {
		return errors.New("conversation cannot be nil")
	}
	if conversation.ID == "" {
		return errors.New("conversation ID cannot be empty")
	}

	objectID, err := primitive.ObjectIDFromHex(conversation.ID)
	if err != nil {
		return fmt.Errorf("invalid conversation ID format: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"client_id":       conversation.ClientID,
			"last_message_at": conversation.LastMessageAt,
			"messages":        conversation.Messages,
			"lead":            conversation.Lead,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation with ID %s not found", conversation.ID)
	}

	return nil
}
