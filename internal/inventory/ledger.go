package inventory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avlasov/wearhouse/internal/repository"
)

// InsufficientStockError reports a refused reservation together with the
// units actually available, so callers can surface the shortfall.
type InsufficientStockError struct {
	ProductID  string
	VariantKey string
	Available  int
}

func (e *InsufficientStockError) Error() string {
	if e.VariantKey != "" {
		return fmt.Sprintf("insufficient stock for %s: %d available", e.VariantKey, e.Available)
	}
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}

// Ledger mediates every stock mutation. Reserve and Release load the product,
// apply the adjustment through the stock's own representation dispatch, and
// persist the product immediately, so a crash after a reserve leaves stock
// decremented rather than over-sold. Access to a single product is serialized
// by a per-product mutex; different products proceed concurrently.
type Ledger struct {
	products repository.ProductRepository
	journal  Journal

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLedger(products repository.ProductRepository, journal Journal) *Ledger {
	return &Ledger{
		products: products,
		journal:  journal,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) lockFor(productID primitive.ObjectID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := productID.Hex()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

// GetAvailable returns the units on hand for the product, or for the given
// variant key when the product tracks per-variant stock.
func (l *Ledger) GetAvailable(ctx context.Context, productID primitive.ObjectID, variantKey string) (int, error) {
	product, err := l.products.FindByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	return product.Stock.Available(variantKey), nil
}

// Reserve decrements stock by amount, refusing the whole reservation if fewer
// units are available. The stored value never goes negative.
func (l *Ledger) Reserve(ctx context.Context, productID primitive.ObjectID, variantKey string, amount int) error {
	lock := l.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	product, err := l.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	if !product.Stock.Deduct(variantKey, amount) {
		return &InsufficientStockError{
			ProductID:  productID.Hex(),
			VariantKey: variantKey,
			Available:  product.Stock.Available(variantKey),
		}
	}

	if err := l.products.SaveStock(ctx, productID, product.Stock); err != nil {
		return fmt.Errorf("persist reserved stock: %w", err)
	}

	l.record(ctx, productID, variantKey, -amount, "reserve")
	return nil
}

// Release returns amount units to the pool, rolling back a prior reservation.
func (l *Ledger) Release(ctx context.Context, productID primitive.ObjectID, variantKey string, amount int) error {
	lock := l.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	product, err := l.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	product.Stock.Restore(variantKey, amount)

	if err := l.products.SaveStock(ctx, productID, product.Stock); err != nil {
		return fmt.Errorf("persist released stock: %w", err)
	}

	l.record(ctx, productID, variantKey, amount, "release")
	return nil
}

// record appends the adjustment to the journal. The journal is an audit
// trail for reconciling stock after partial failures; a write error must not
// fail the operation that already persisted.
func (l *Ledger) record(ctx context.Context, productID primitive.ObjectID, variantKey string, delta int, op string) {
	entry := Entry{
		ID:         uuid.New().String(),
		ProductID:  productID.Hex(),
		VariantKey: variantKey,
		Delta:      delta,
		Op:         op,
		At:         time.Now(),
	}
	if err := l.journal.Append(ctx, entry); err != nil {
		log.Printf("inventory journal append failed for %s: %v", entry.ID, err)
	}
}
