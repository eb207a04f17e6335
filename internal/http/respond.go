package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/avlasov/wearhouse/internal/coupon"
	"github.com/avlasov/wearhouse/internal/inventory"
	"github.com/avlasov/wearhouse/internal/repository"
	"github.com/avlasov/wearhouse/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Details: details,
	})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Validation and coupon rejections are 400, missing entities 404, anything
// else a 500 with the detail withheld from the client.
func respondServiceError(w http.ResponseWriter, err error) {
	var insufficient *inventory.InsufficientStockError
	var variant *service.InvalidVariantError

	switch {
	case errors.Is(err, service.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, service.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
	case errors.As(err, &variant):
		respondError(w, http.StatusBadRequest, "invalid_variant", err.Error())
	case errors.As(err, &insufficient):
		respondError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
	case coupon.IsRejection(err):
		respondError(w, http.StatusBadRequest, "coupon_invalid", err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, repository.ErrCartNotFound):
		respondError(w, http.StatusNotFound, "cart_not_found", err.Error())
	case errors.Is(err, service.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
	}
}
