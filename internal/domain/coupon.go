package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon is a flat-amount discount code. MaxUses of 0 means unbounded.
// The cart flow only reads coupons; UsedBy is appended by the order flow
// when it finalizes an order.
type Coupon struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Code        string             `bson:"code" json:"code"`
	Discount    float64            `bson:"discount" json:"discount"`
	ValidUntil  time.Time          `bson:"valid_until" json:"valid_until"`
	MaxUses     int                `bson:"max_uses" json:"max_uses"`
	UsedBy      []string           `bson:"used_by" json:"used_by"`
	MinPurchase float64            `bson:"min_purchase" json:"min_purchase"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

func (c *Coupon) ExpiredAt(now time.Time) bool {
	return c.ValidUntil.Before(now)
}

func (c *Coupon) UsedByUser(userID string) bool {
	for _, id := range c.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Exhausted reports whether the redemption limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.MaxUses > 0 && len(c.UsedBy) >= c.MaxUses
}
