package coupon

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/avlasov/wearhouse/internal/domain"
	"github.com/avlasov/wearhouse/internal/repository"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	minCodeLength = 5
	maxCodeLength = 10
	minDiscount   = 5
	maxDiscount   = 50
	maxAttempts   = 100
)

// Generator mints admin coupons: a random unique code and a random flat
// discount, valid for a number of days.
type Generator struct {
	coupons repository.CouponRepository
}

func NewGenerator(coupons repository.CouponRepository) *Generator {
	return &Generator{coupons: coupons}
}

// Generate creates and stores a new coupon. maxUses of 0 means unbounded.
// Code collisions are retried, including the insert itself racing another
// generator.
func (g *Generator) Generate(ctx context.Context, validDays, maxUses int, minPurchase float64) (*domain.Coupon, error) {
	if validDays <= 0 {
		validDays = 30
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := randomCode(minCodeLength, maxCodeLength)

		_, err := g.coupons.FindByCode(ctx, code)
		if err == nil {
			continue // taken
		}
		if !errors.Is(err, repository.ErrCouponNotFound) {
			return nil, err
		}

		coupon := &domain.Coupon{
			Code:        code,
			Discount:    float64(rand.Intn(maxDiscount-minDiscount+1) + minDiscount),
			ValidUntil:  time.Now().AddDate(0, 0, validDays),
			MaxUses:     maxUses,
			UsedBy:      []string{},
			MinPurchase: minPurchase,
			CreatedAt:   time.Now(),
		}

		err = g.coupons.Insert(ctx, coupon)
		if errors.Is(err, repository.ErrCouponCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return coupon, nil
	}

	return nil, fmt.Errorf("could not generate a unique coupon code after %d attempts", maxAttempts)
}

func randomCode(minLen, maxLen int) string {
	length := rand.Intn(maxLen-minLen+1) + minLen
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(codeCharset[rand.Intn(len(codeCharset))])
	}
	return b.String()
}
