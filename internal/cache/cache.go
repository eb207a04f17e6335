package cache

import (
	"context"
	"errors"

	"github.com/avlasov/wearhouse/internal/domain"
)

var ErrCacheMiss = errors.New("cart not found in cache")

// CartCache is a read-through cache for a user's active cart. Writers
// invalidate; only reads populate.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}
