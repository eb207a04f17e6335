package service

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"github.com/avlasov/wearhouse/internal/cache"
	"github.com/avlasov/wearhouse/internal/domain"
	"github.com/avlasov/wearhouse/internal/repository"
)

// Inventory is the stock ledger surface the cart flow drives. Implementations
// must persist each adjustment before returning and never let stock go
// negative.
type Inventory interface {
	Reserve(ctx context.Context, productID primitive.ObjectID, variantKey string, amount int) error
	Release(ctx context.Context, productID primitive.ObjectID, variantKey string, amount int) error
}

// CouponValidator decides applicability of a coupon code for a user and a
// pre-discount cart total, returning the flat discount amount.
type CouponValidator interface {
	Validate(ctx context.Context, code, userID string, cartTotal float64) (float64, error)
}

// CartService implements the cart use cases. Every mutation follows the same
// protocol: validate, adjust inventory, adjust the cart, recompute totals,
// persist, invalidate the cache. Inventory is always adjusted before the cart
// is persisted, so a crash between the two under-counts available stock
// instead of over-selling. If the cart write fails, the service issues the
// inverse inventory adjustment as compensation.
type CartService struct {
	carts     repository.CartRepository
	products  repository.ProductRepository
	inventory Inventory
	coupons   CouponValidator
	cache     cache.CartCache
	sfg       singleflight.Group // prevents cache stampede on GetCart
}

func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	inventory Inventory,
	coupons CouponValidator,
	cartCache cache.CartCache,
) *CartService {
	return &CartService{
		carts:     carts,
		products:  products,
		inventory: inventory,
		coupons:   coupons,
		cache:     cartCache,
	}
}

type AddItemInput struct {
	ProductID primitive.ObjectID
	Quantity  int
	Size      string
	Color     string
}

type UpdateItemInput struct {
	ProductID primitive.ObjectID
	Quantity  int // 0 or negative means remove the line
	Size      string
	Color     string
}

// GetCart returns the user's active cart, creating an empty one on first
// access. Reads go through the cache with singleflight collapsing concurrent
// misses for the same user.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, err = s.carts.GetOrCreateActive(ctx, userID)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.Set(context.Background(), userID, cart); err != nil {
				log.Printf("cache set error: %v", err)
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem reserves stock for the requested quantity and appends it to the
// cart, merging with an existing line for the same product variant. The unit
// price is captured at add time.
func (s *CartService) AddItem(ctx context.Context, userID string, in AddItemInput) (*domain.Cart, error) {
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Price <= 0 || math.IsNaN(product.Price) || math.IsInf(product.Price, 0) {
		return nil, ErrInvalidProduct
	}
	if err := validateVariant(product, in.Size, in.Color); err != nil {
		return nil, err
	}

	key := variantKeyFor(product, in.Size, in.Color)
	if err := s.inventory.Reserve(ctx, in.ProductID, key, in.Quantity); err != nil {
		return nil, err
	}

	cart, err := s.carts.GetOrCreateActive(ctx, userID)
	if err != nil {
		s.compensateRelease(in.ProductID, key, in.Quantity)
		return nil, err
	}

	if idx := cart.FindItem(in.ProductID, in.Size, in.Color); idx >= 0 {
		item := &cart.Items[idx]
		item.Quantity += in.Quantity
		item.Subtotal = float64(item.Quantity) * item.Price
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			Size:      in.Size,
			Color:     in.Color,
			Price:     product.Price,
			Subtotal:  float64(in.Quantity) * product.Price,
		})
	}

	cart.RecomputeTotals()
	if err := s.carts.Save(ctx, cart); err != nil {
		s.compensateRelease(in.ProductID, key, in.Quantity)
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

// UpdateItem changes a line's quantity. A quantity of 0 or less removes the
// line and returns its full reservation to inventory; otherwise only the
// delta is reserved or released. A failed delta reservation leaves both the
// cart and the prior reservation untouched.
func (s *CartService) UpdateItem(ctx context.Context, userID string, in UpdateItemInput) (*domain.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(in.ProductID, in.Size, in.Color)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	item := &cart.Items[idx]

	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	key := variantKeyFor(product, item.Size, item.Color)

	if in.Quantity <= 0 {
		released := item.Quantity
		if err := s.inventory.Release(ctx, in.ProductID, key, released); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

		cart.RecomputeTotals()
		if err := s.carts.Save(ctx, cart); err != nil {
			s.compensateReserve(in.ProductID, key, released)
			return nil, err
		}
		s.invalidateCache(userID)
		return cart, nil
	}

	if err := validateVariant(product, in.Size, in.Color); err != nil {
		return nil, err
	}

	delta := in.Quantity - item.Quantity
	switch {
	case delta > 0:
		if err := s.inventory.Reserve(ctx, in.ProductID, key, delta); err != nil {
			return nil, err
		}
	case delta < 0:
		if err := s.inventory.Release(ctx, in.ProductID, key, -delta); err != nil {
			return nil, err
		}
	}

	item.Quantity = in.Quantity
	item.Subtotal = float64(item.Quantity) * item.Price

	cart.RecomputeTotals()
	if err := s.carts.Save(ctx, cart); err != nil {
		switch {
		case delta > 0:
			s.compensateRelease(in.ProductID, key, delta)
		case delta < 0:
			s.compensateReserve(in.ProductID, key, -delta)
		}
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

// RemoveItem deletes a line and returns its full quantity to inventory.
func (s *CartService) RemoveItem(ctx context.Context, userID string, productID primitive.ObjectID, size, color string) (*domain.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	idx := cart.FindItem(productID, size, color)
	if idx < 0 {
		return nil, ErrItemNotFound
	}
	item := cart.Items[idx]

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	key := variantKeyFor(product, item.Size, item.Color)

	if err := s.inventory.Release(ctx, productID, key, item.Quantity); err != nil {
		return nil, err
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	cart.RecomputeTotals()
	if err := s.carts.Save(ctx, cart); err != nil {
		s.compensateReserve(productID, key, item.Quantity)
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

// ClearCart returns every line's quantity to inventory and empties the cart,
// dropping any applied coupon. Lines whose product no longer exists are
// skipped. Clearing an already empty cart is a no-op.
func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 && cart.AppliedCoupon == nil {
		return cart, nil
	}

	for _, item := range cart.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		key := variantKeyFor(product, item.Size, item.Color)
		if err := s.inventory.Release(ctx, item.ProductID, key, item.Quantity); err != nil {
			return nil, err
		}
	}

	cart.Clear()
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

// ApplyCoupon validates the code against the cart's current total and
// attaches the discount. The validator does not mark the coupon used; that
// happens when the order flow finalizes.
func (s *CartService) ApplyCoupon(ctx context.Context, userID, code string) (*domain.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	discount, err := s.coupons.Validate(ctx, code, userID, cart.TotalAmount)
	if err != nil {
		return nil, err
	}

	cart.AppliedCoupon = &domain.AppliedCoupon{Code: code, Discount: discount}
	cart.RecomputeTotals()
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

// RemoveCoupon detaches the applied coupon and restores the undiscounted total.
func (s *CartService) RemoveCoupon(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetActive(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.AppliedCoupon = nil
	cart.RecomputeTotals()
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}

	s.invalidateCache(userID)
	return cart, nil
}

func validateVariant(product *domain.Product, size, color string) error {
	if size != "" && !product.HasSize(size) {
		return &InvalidVariantError{Field: "size", Value: size}
	}
	if color != "" && !product.HasColor(color) {
		return &InvalidVariantError{Field: "color", Value: color}
	}
	return nil
}

// variantKeyFor returns the stock map key for per-variant products and the
// empty key for scalar ones; the ledger dispatches on the product itself.
func variantKeyFor(product *domain.Product, size, color string) string {
	if !product.Stock.PerVariant() {
		return ""
	}
	return domain.VariantKey(size, color)
}

// compensateRelease undoes a reservation after the cart write failed. Runs
// with its own deadline: the request context may already be dead.
func (s *CartService) compensateRelease(productID primitive.ObjectID, variantKey string, amount int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.inventory.Release(ctx, productID, variantKey, amount); err != nil {
		log.Printf("compensating release failed for product %s (%s, %d units): %v",
			productID.Hex(), variantKey, amount, err)
	}
}

// compensateReserve re-takes stock released by an operation whose cart write
// failed. If stock was sold in the window, the journal holds the adjustment
// trail for manual reconciliation.
func (s *CartService) compensateReserve(productID primitive.ObjectID, variantKey string, amount int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.inventory.Reserve(ctx, productID, variantKey, amount); err != nil {
		log.Printf("compensating reserve failed for product %s (%s, %d units): %v",
			productID.Hex(), variantKey, amount, err)
	}
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
