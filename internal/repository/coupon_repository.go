package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avlasov/wearhouse/internal/domain"
)

type mongoCouponRepository struct {
	collection *mongo.Collection
}

func NewMongoCouponRepository(db *mongo.Database) CouponRepository {
	return &mongoCouponRepository{
		collection: db.Collection("coupons"),
	}
}

func (m *mongoCouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var coupon domain.Coupon
	err := m.collection.FindOne(ctx, bson.M{"code": strings.ToUpper(code)}).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return &coupon, nil
}

func (m *mongoCouponRepository) Insert(ctx context.Context, coupon *domain.Coupon) error {
	coupon.Code = strings.ToUpper(coupon.Code)
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = time.Now()
	}
	if coupon.UsedBy == nil {
		coupon.UsedBy = []string{}
	}

	_, err := m.collection.InsertOne(ctx, coupon)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrCouponCodeTaken
		}
		return fmt.Errorf("failed to insert coupon: %w", err)
	}
	return nil
}

func (m *mongoCouponRepository) MarkUsed(ctx context.Context, code, userID string) error {
	filter := bson.M{"code": strings.ToUpper(code)}
	update := bson.M{"$addToSet": bson.M{"used_by": userID}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark coupon used: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrCouponNotFound
	}
	return nil
}

func (m *mongoCouponRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create coupon indexes: %w", err)
	}
	return nil
}
