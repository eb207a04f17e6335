package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avlasov/wearhouse/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponCodeTaken = errors.New("coupon code already exists")
)

// CartRepository defines the cart persistence operations the service layer
// consumes. Carts are loaded and saved whole; there are no partial updates.
type CartRepository interface {
	// GetActive returns the user's active cart or ErrCartNotFound.
	GetActive(ctx context.Context, userID string) (*domain.Cart, error)
	// GetOrCreateActive returns the user's active cart, creating an empty
	// one if none exists. Creation is atomic: concurrent callers observe
	// the same cart.
	GetOrCreateActive(ctx context.Context, userID string) (*domain.Cart, error)
	// Save persists the whole cart document.
	Save(ctx context.Context, cart *domain.Cart) error
	// UpdateStatus transitions the user's cart from one status to another.
	// Returns ErrCartNotFound if no cart is in the from status.
	UpdateStatus(ctx context.Context, userID string, from, to domain.CartStatus) error
}

// ProductRepository is the narrow catalog surface the cart flow needs:
// look up a product, write back its stock.
type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	SaveStock(ctx context.Context, id primitive.ObjectID, stock domain.Stock) error
}

type CouponRepository interface {
	// FindByCode looks up a coupon by its uppercase code.
	FindByCode(ctx context.Context, code string) (*domain.Coupon, error)
	Insert(ctx context.Context, coupon *domain.Coupon) error
	// MarkUsed records a redemption by the user. Idempotent per user.
	MarkUsed(ctx context.Context, code, userID string) error
}
