package domain

import (
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartStatus tracks the cart lifecycle. Only active carts are mutated by the
// cart service; abandonment and conversion are driven by the order flow.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusConverted CartStatus = "converted"
)

// AppliedCoupon is the flat-amount discount currently attached to a cart.
type AppliedCoupon struct {
	Code     string  `bson:"code" json:"code"`
	Discount float64 `bson:"discount" json:"discount"`
}

type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Size      string             `bson:"size,omitempty" json:"size,omitempty"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
	Price     float64            `bson:"price" json:"price"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
}

// Matches reports whether the line item refers to the same product variant.
func (i CartItem) Matches(productID primitive.ObjectID, size, color string) bool {
	return i.ProductID == productID && i.Size == size && i.Color == color
}

type Cart struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID        string             `bson:"user_id" json:"user_id"`
	Items         []CartItem         `bson:"items" json:"items"`
	TotalAmount   float64            `bson:"total_amount" json:"total_amount"`
	TotalItems    int                `bson:"total_items" json:"total_items"`
	AppliedCoupon *AppliedCoupon     `bson:"applied_coupon,omitempty" json:"applied_coupon,omitempty"`
	Status        CartStatus         `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	LastUpdated   time.Time          `bson:"last_updated" json:"last_updated"`
}

// FindItem returns the index of the line item matching the product variant,
// or -1 if no such line exists.
func (c *Cart) FindItem(productID primitive.ObjectID, size, color string) int {
	for i, item := range c.Items {
		if item.Matches(productID, size, color) {
			return i
		}
	}
	return -1
}

// RecomputeTotals rebuilds the cached totals from the line items and the
// applied coupon. TotalAmount and TotalItems are never computed at read time;
// every structural change must call this before the cart is persisted.
// A corrupt (non-finite) subtotal counts as 0 rather than poisoning the total.
func (c *Cart) RecomputeTotals() {
	var amount float64
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
		if math.IsNaN(item.Subtotal) || math.IsInf(item.Subtotal, 0) {
			log.Printf("invalid subtotal for product %s, counting as 0", item.ProductID.Hex())
			continue
		}
		amount += item.Subtotal
	}

	if c.AppliedCoupon != nil {
		d := c.AppliedCoupon.Discount
		if !math.IsNaN(d) && !math.IsInf(d, 0) {
			amount = math.Max(0, amount-d)
		}
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}

	c.TotalAmount = amount
	c.TotalItems = count
	c.LastUpdated = time.Now()
}

// Clear empties the cart: no items, no coupon, zero totals.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.AppliedCoupon = nil
	c.TotalAmount = 0
	c.TotalItems = 0
	c.LastUpdated = time.Now()
}
