package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avlasov/wearhouse/internal/repository"
)

// Rejection reasons, each surfaced to the user verbatim. The checks run in a
// fixed order and the first failure wins, so a coupon that is both expired
// and already used reports the expiry.
var (
	ErrNotFound          = errors.New("coupon not found")
	ErrExpired           = errors.New("coupon has expired")
	ErrAlreadyUsed       = errors.New("coupon already used by this user")
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// MinPurchaseError carries the floor the cart subtotal failed to meet.
type MinPurchaseError struct {
	Min float64
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("minimum purchase of %v required", e.Min)
}

type Validator struct {
	coupons repository.CouponRepository
}

func NewValidator(coupons repository.CouponRepository) *Validator {
	return &Validator{coupons: coupons}
}

// Validate decides whether the user may apply the coupon to a cart with the
// given pre-discount total, returning the flat discount amount on success.
// It never mutates the coupon: redemption bookkeeping belongs to the order
// flow that finalizes the purchase.
func (v *Validator) Validate(ctx context.Context, code, userID string, cartTotal float64) (float64, error) {
	coupon, err := v.coupons.FindByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, repository.ErrCouponNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	if coupon.ExpiredAt(time.Now()) {
		return 0, ErrExpired
	}
	if coupon.UsedByUser(userID) {
		return 0, ErrAlreadyUsed
	}
	if coupon.Exhausted() {
		return 0, ErrUsageLimitReached
	}
	if cartTotal < coupon.MinPurchase {
		return 0, &MinPurchaseError{Min: coupon.MinPurchase}
	}

	return coupon.Discount, nil
}

// IsRejection reports whether err is a coupon rejection rather than an
// infrastructure failure.
func IsRejection(err error) bool {
	var minPurchase *MinPurchaseError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrAlreadyUsed) ||
		errors.Is(err, ErrUsageLimitReached) ||
		errors.As(err, &minPurchase)
}
