package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name         string             `bson:"name" json:"name"`
	Brand        string             `bson:"brand,omitempty" json:"brand,omitempty"`
	Price        float64            `bson:"price" json:"price"`
	SizeOptions  []string           `bson:"size_options,omitempty" json:"size_options,omitempty"`
	ColorOptions []string           `bson:"color_options,omitempty" json:"color_options,omitempty"`
	Stock        Stock              `bson:"stock" json:"-"`
	SKU          string             `bson:"sku,omitempty" json:"sku,omitempty"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

func (p *Product) HasSize(size string) bool {
	for _, s := range p.SizeOptions {
		if s == size {
			return true
		}
	}
	return false
}

func (p *Product) HasColor(color string) bool {
	for _, c := range p.ColorOptions {
		if c == color {
			return true
		}
	}
	return false
}

// VariantKey builds the stock map key for a size/color combination.
func VariantKey(size, color string) string {
	return size + "-" + color
}

// Stock is a tagged variant: a product tracks either a single scalar unit
// count or a per-variant map keyed by "<size>-<color>". The representation is
// fixed when the product is created and all arithmetic dispatches on it here,
// so callers never branch on which form a product uses.
type Stock struct {
	units     int
	byVariant map[string]int
}

func NewScalarStock(units int) Stock {
	return Stock{units: units}
}

func NewVariantStock(byVariant map[string]int) Stock {
	if byVariant == nil {
		byVariant = map[string]int{}
	}
	return Stock{byVariant: byVariant}
}

// PerVariant reports whether stock is tracked per size/color variant.
func (s *Stock) PerVariant() bool {
	return s.byVariant != nil
}

// Available returns the units on hand for the variant key, or the scalar
// count for single-stock products. An absent variant key counts as 0.
func (s *Stock) Available(variantKey string) int {
	if s.byVariant != nil {
		return s.byVariant[variantKey]
	}
	return s.units
}

// Deduct removes amount units and reports whether enough stock was on hand.
// The stored value never goes negative: a short deduction is refused whole.
func (s *Stock) Deduct(variantKey string, amount int) bool {
	if s.Available(variantKey) < amount {
		return false
	}
	if s.byVariant != nil {
		s.byVariant[variantKey] -= amount
	} else {
		s.units -= amount
	}
	return true
}

// Restore returns amount units to the pool.
func (s *Stock) Restore(variantKey string, amount int) {
	if s.byVariant != nil {
		s.byVariant[variantKey] += amount
	} else {
		s.units += amount
	}
}

// Total sums stock across all variants (or returns the scalar count).
func (s *Stock) Total() int {
	if s.byVariant == nil {
		return s.units
	}
	total := 0
	for _, n := range s.byVariant {
		total += n
	}
	return total
}

// MarshalBSONValue stores scalar stock as an integer and per-variant stock as
// an embedded document, the same shapes the catalog has always persisted.
func (s Stock) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if s.byVariant != nil {
		return bson.MarshalValue(s.byVariant)
	}
	return bson.MarshalValue(int64(s.units))
}

// UnmarshalBSONValue accepts either representation from the stored document.
func (s *Stock) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.Int32:
		s.units = int(raw.Int32())
		s.byVariant = nil
	case bsontype.Int64:
		s.units = int(raw.Int64())
		s.byVariant = nil
	case bsontype.Double:
		s.units = int(raw.Double())
		s.byVariant = nil
	case bsontype.EmbeddedDocument:
		m := map[string]int{}
		if err := raw.Unmarshal(&m); err != nil {
			return fmt.Errorf("decode variant stock: %w", err)
		}
		s.units = 0
		s.byVariant = m
	case bsontype.Null:
		*s = Stock{}
	default:
		return fmt.Errorf("unsupported stock representation: %s", t)
	}
	return nil
}
