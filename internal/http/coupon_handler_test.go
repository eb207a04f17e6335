package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avlasov/wearhouse/internal/domain"
)

type mockGenerator struct {
	coupon       *domain.Coupon
	err          error
	gotValidDays int
	gotMaxUses   int
	gotMin       float64
}

func (m *mockGenerator) Generate(_ context.Context, validDays, maxUses int, minPurchase float64) (*domain.Coupon, error) {
	m.gotValidDays = validDays
	m.gotMaxUses = maxUses
	m.gotMin = minPurchase
	return m.coupon, m.err
}

func TestGenerateCoupon(t *testing.T) {
	gen := &mockGenerator{coupon: &domain.Coupon{Code: "AB12C", Discount: 15}}
	h := NewCouponHandler(gen, 5*time.Second)

	body, _ := json.Marshal(generateCouponRequestDTO{ValidDays: 7, MaxUses: 3, MinPurchase: 50})
	req := httptest.NewRequest(http.MethodPost, "/coupons", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 7, gen.gotValidDays)
	assert.Equal(t, 3, gen.gotMaxUses)
	assert.Equal(t, 50.0, gen.gotMin)

	var resp couponResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "AB12C", resp.Data.Code)
}

func TestGenerateCoupon_EmptyBodyUsesDefaults(t *testing.T) {
	gen := &mockGenerator{coupon: &domain.Coupon{Code: "AB12C"}}
	h := NewCouponHandler(gen, 5*time.Second)

	req := httptest.NewRequest(http.MethodPost, "/coupons", nil)
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 30, gen.gotValidDays)
	assert.Equal(t, 0, gen.gotMaxUses)
}

func TestGenerateCoupon_NegativeValuesRejected(t *testing.T) {
	gen := &mockGenerator{}
	h := NewCouponHandler(gen, 5*time.Second)

	body, _ := json.Marshal(generateCouponRequestDTO{MaxUses: -1})
	req := httptest.NewRequest(http.MethodPost, "/coupons", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
