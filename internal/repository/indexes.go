package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the indexes every deployment relies on: the one
// active cart per user constraint, the cart TTL, and coupon code uniqueness.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	carts := &mongoCartRepository{collection: db.Collection("carts")}
	if err := carts.CreateIndexes(ctx); err != nil {
		return err
	}

	coupons := &mongoCouponRepository{collection: db.Collection("coupons")}
	return coupons.CreateIndexes(ctx)
}
