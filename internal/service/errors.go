package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrInvalidProduct  = errors.New("invalid product price")
	ErrItemNotFound    = errors.New("item not found in cart")
)

// InvalidVariantError reports a size or color outside the product's options.
type InvalidVariantError struct {
	Field string // "size" or "color"
	Value string
}

func (e *InvalidVariantError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Value)
}
