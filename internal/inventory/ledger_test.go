package inventory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/avlasov/wearhouse/internal/domain"
	"github.com/avlasov/wearhouse/internal/repository"
)

type mockProductRepo struct {
	m        sync.RWMutex
	products map[primitive.ObjectID]*domain.Product
	saveErr  error
}

func newMockProductRepo(products ...*domain.Product) *mockProductRepo {
	repo := &mockProductRepo{products: make(map[primitive.ObjectID]*domain.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (m *mockProductRepo) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *mockProductRepo) SaveStock(_ context.Context, id primitive.ObjectID, stock domain.Stock) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock = stock
	return nil
}

func (m *mockProductRepo) available(id primitive.ObjectID, key string) int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.products[id].Stock.Available(key)
}

type recordingJournal struct {
	m       sync.Mutex
	entries []Entry
}

func (j *recordingJournal) Append(_ context.Context, e Entry) error {
	j.m.Lock()
	defer j.m.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func scalarProduct(units int) *domain.Product {
	return &domain.Product{
		ID:    primitive.NewObjectID(),
		Name:  "plain tee",
		Price: 20,
		Stock: domain.NewScalarStock(units),
	}
}

func variantProduct(stock map[string]int) *domain.Product {
	return &domain.Product{
		ID:           primitive.NewObjectID(),
		Name:         "fitted tee",
		Price:        25,
		SizeOptions:  []string{"S", "M", "L"},
		ColorOptions: []string{"red", "black"},
		Stock:        domain.NewVariantStock(stock),
	}
}

func TestReserve_Scalar_Success(t *testing.T) {
	product := scalarProduct(10)
	repo := newMockProductRepo(product)
	ledger := NewLedger(repo, NopJournal{})

	err := ledger.Reserve(context.Background(), product.ID, "", 4)
	require.NoError(t, err)

	assert.Equal(t, 6, repo.available(product.ID, ""))
}

func TestReserve_Variant_Success(t *testing.T) {
	product := variantProduct(map[string]int{"M-red": 5})
	repo := newMockProductRepo(product)
	ledger := NewLedger(repo, NopJournal{})

	err := ledger.Reserve(context.Background(), product.ID, "M-red", 2)
	require.NoError(t, err)

	assert.Equal(t, 3, repo.available(product.ID, "M-red"))
}

func TestReserve_InsufficientStock_LeavesStockUnchanged(t *testing.T) {
	product := variantProduct(map[string]int{"M-red": 3})
	repo := newMockProductRepo(product)
	ledger := NewLedger(repo, NopJournal{})

	err := ledger.Reserve(context.Background(), product.ID, "M-red", 5)

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Available)
	assert.Equal(t, "M-red", insufficient.VariantKey)
	assert.Equal(t, 3, repo.available(product.ID, "M-red"))
}

func TestReserve_AbsentVariantKey_ReportsZeroAvailable(t *testing.T) {
	product := variantProduct(map[string]int{"M-red": 3})
	repo := newMockProductRepo(product)
	ledger := NewLedger(repo, NopJournal{})

	err := ledger.Reserve(context.Background(), product.ID, "XL-green", 1)

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Available)
}

func TestReserve_ProductNotFound(t *testing.T) {
	ledger := NewLedger(newMockProductRepo(), NopJournal{})

	err := ledger.Reserve(context.Background(), primitive.NewObjectID(), "", 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestReserveThenRelease_RestoresAvailableExactly(t *testing.T) {
	product := variantProduct(map[string]int{"M-red": 5})
	repo := newMockProductRepo(product)
	ledger := NewLedger(repo, NopJournal{})
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, product.ID, "M-red", 4))
	require.NoError(t, ledger.Release(ctx, product.ID, "M-red", 4))

	available, err := ledger.GetAvailable(ctx, product.ID, "M-red")
	require.NoError(t, err)
	assert.Equal(t, 5, available)
}

func TestReserve_PersistFailure_Propagates(t *testing.T) {
	product := scalarProduct(10)
	repo := newMockProductRepo(product)
	repo.saveErr = fmt.Errorf("write concern error")
	ledger := NewLedger(repo, NopJournal{})

	err := ledger.Reserve(context.Background(), product.ID, "", 1)
	require.ErrorContains(t, err, "write concern error")
	assert.Equal(t, 10, repo.available(product.ID, ""))
}

func TestJournal_RecordsEveryAdjustment(t *testing.T) {
	product := variantProduct(map[string]int{"M-red": 5})
	repo := newMockProductRepo(product)
	journal := &recordingJournal{}
	ledger := NewLedger(repo, journal)
	ctx := context.Background()

	require.NoError(t, ledger.Reserve(ctx, product.ID, "M-red", 2))
	require.NoError(t, ledger.Release(ctx, product.ID, "M-red", 2))

	require.Len(t, journal.entries, 2)
	assert.Equal(t, "reserve", journal.entries[0].Op)
	assert.Equal(t, -2, journal.entries[0].Delta)
	assert.NotEmpty(t, journal.entries[0].ID)
	assert.Equal(t, "release", journal.entries[1].Op)
	assert.Equal(t, 2, journal.entries[1].Delta)
	assert.Equal(t, product.ID.Hex(), journal.entries[1].ProductID)
}

func TestReserve_ConcurrentRequests_NeverOversell(t *testing.T) {
	product := scalarProduct(100)
	repo := newMockProductRepo(product)
	ledger := NewLedger(repo, NopJournal{})

	var wg sync.WaitGroup
	successCount := 0
	var mu sync.Mutex

	// Try to reserve 20 units each, 10 times concurrently.
	// Only 5 should succeed (100 / 20 = 5).
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Reserve(context.Background(), product.ID, "", 20); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 5, successCount)
	assert.Equal(t, 0, repo.available(product.ID, ""))
}
