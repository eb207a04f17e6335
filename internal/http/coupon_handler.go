package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/avlasov/wearhouse/internal/domain"
)

// CouponGenerator mints admin coupons.
type CouponGenerator interface {
	Generate(ctx context.Context, validDays, maxUses int, minPurchase float64) (*domain.Coupon, error)
}

type CouponHandler struct {
	generator CouponGenerator
	timeout   time.Duration
}

func NewCouponHandler(generator CouponGenerator, timeout time.Duration) *CouponHandler {
	return &CouponHandler{
		generator: generator,
		timeout:   timeout,
	}
}

type generateCouponRequestDTO struct {
	ValidDays   int     `json:"valid_days"`
	MaxUses     int     `json:"max_uses"`
	MinPurchase float64 `json:"min_purchase"`
}

type couponResponseDTO struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Data    *domain.Coupon `json:"data"`
}

func (h *CouponHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	req := generateCouponRequestDTO{ValidDays: 30}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	if req.MaxUses < 0 || req.MinPurchase < 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "max_uses and min_purchase must not be negative")
		return
	}

	coupon, err := h.generator.Generate(ctx, req.ValidDays, req.MaxUses, req.MinPurchase)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, couponResponseDTO{
		Success: true,
		Message: "Coupon generated successfully",
		Data:    coupon,
	})
}
