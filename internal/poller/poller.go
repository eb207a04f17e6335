package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avlasov/wearhouse/internal/cache"
	"github.com/avlasov/wearhouse/internal/domain"
	"github.com/avlasov/wearhouse/internal/repository"
)

// orderEvent is published by the order subsystem when it finalizes an order
// from a user's active cart.
type orderEvent struct {
	UserID     string `json:"user_id"`
	OrderID    string `json:"order_id"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// Poller consumes order-finalized events and applies their cart-side effects:
// the coupon redemption is recorded, the active cart transitions to converted,
// and the cache entry is dropped. This is the only path out of the active
// status; the cart service itself never converts carts.
type Poller struct {
	carts   repository.CartRepository
	coupons repository.CouponRepository
	cache   cache.CartCache
	reader  *kafka.Reader
}

func NewPoller(carts repository.CartRepository, coupons repository.CouponRepository, cartCache cache.CartCache, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "orders",
		GroupID:  "wearhouse-cart",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{
		carts:   carts,
		coupons: coupons,
		cache:   cartCache,
		reader:  reader,
	}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("error reading order event: %v", err)
			}
			continue
		}
		p.handle(ctx, m.Value)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.Printf("error closing order event reader: %v", err)
	}
}

func (p *Poller) handle(ctx context.Context, payload []byte) {
	var event orderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("error parsing order event: %v", err)
		return
	}
	if event.UserID == "" {
		log.Println("order event missing user_id")
		return
	}

	if event.CouponCode != "" {
		if err := p.coupons.MarkUsed(ctx, event.CouponCode, event.UserID); err != nil {
			log.Printf("error marking coupon %s used for order %s: %v", event.CouponCode, event.OrderID, err)
		}
	}

	err := p.carts.UpdateStatus(ctx, event.UserID, domain.CartStatusActive, domain.CartStatusConverted)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		log.Printf("error converting cart for order %s: %v", event.OrderID, err)
		return
	}

	cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.cache.Delete(cacheCtx, event.UserID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
