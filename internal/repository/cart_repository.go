package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avlasov/wearhouse/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func activeFilter(userID string) bson.M {
	return bson.M{"user_id": userID, "status": domain.CartStatusActive}
}

func (m *mongoCartRepository) GetActive(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := m.collection.FindOne(ctx, activeFilter(userID)).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return &cart, nil
}

func (m *mongoCartRepository) GetOrCreateActive(ctx context.Context, userID string) (*domain.Cart, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":      userID,
			"status":       domain.CartStatusActive,
			"items":        []domain.CartItem{},
			"total_amount": 0,
			"total_items":  0,
			"created_at":   now,
			"last_updated": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var cart domain.Cart
	err := m.collection.FindOneAndUpdate(ctx, activeFilter(userID), update, opts).Decode(&cart)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}
	return &cart, nil
}

func (m *mongoCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	if cart.ID.IsZero() {
		if cart.CreatedAt.IsZero() {
			cart.CreatedAt = time.Now()
		}
		result, err := m.collection.InsertOne(ctx, cart)
		if err != nil {
			return fmt.Errorf("failed to insert cart: %w", err)
		}
		if id, ok := result.InsertedID.(primitive.ObjectID); ok {
			cart.ID = id
		}
		return nil
	}

	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": cart.ID}, cart)
	if err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) UpdateStatus(ctx context.Context, userID string, from, to domain.CartStatus) error {
	filter := bson.M{"user_id": userID, "status": from}
	update := bson.M{"$set": bson.M{
		"status":       to,
		"last_updated": time.Now(),
	}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update cart status: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			// At most one active cart per user.
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.CartStatusActive}),
		},
		{
			Keys:    bson.D{{Key: "last_updated", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}
	return nil
}
