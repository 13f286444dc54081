package stores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/syncqueue"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
)

func newInventoryFixture(t *testing.T, online *onlineFlag) (*InventoryStore, *SalesStore, *memStore) {
	t.Helper()
	repos, err := localstore.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	store := newMemStore()
	queue := syncqueue.New(repos.Queue, store, logging.Nop())
	inv := NewInventoryStore(repos.Products, queue, store, logging.Nop(), online.get)
	sales := NewSalesStore(repos.Sales, repos.Products, queue, store, logging.Nop(), online.get)
	return inv, sales, store
}

func product(sku, name string, stock int64) *models.Product {
	return &models.Product{SKU: sku, Name: name, PriceCents: 150, Stock: stock}
}

func TestInventoryAddRejectsDuplicateSKU(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newInventoryFixture(t, &onlineFlag{v: true})

	require.NoError(t, inv.Add(ctx, product("SK-1", "Salt", 10)))

	err := inv.Add(ctx, product("SK-1", "Salt (fine)", 5))
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Len(t, inv.Products(), 1)
}

func TestInventoryAdjustStockClampsAtZero(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newInventoryFixture(t, &onlineFlag{v: true})

	p := product("SK-1", "Salt", 10)
	require.NoError(t, inv.Add(ctx, p))

	require.NoError(t, inv.AdjustStock(ctx, p.ID, -4))
	got, err := inv.BySKU(ctx, "SK-1")
	require.NoError(t, err)
	assert.EqualValues(t, 6, got.Stock)

	require.NoError(t, inv.AdjustStock(ctx, p.ID, -100))
	got, err = inv.BySKU(ctx, "SK-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Stock)
}

func TestInventoryLowStock(t *testing.T) {
	ctx := context.Background()
	inv, _, _ := newInventoryFixture(t, &onlineFlag{v: true})

	require.NoError(t, inv.Add(ctx, product("SK-1", "Salt", 2)))
	require.NoError(t, inv.Add(ctx, product("SK-2", "Sugar", 40)))

	low, err := inv.LowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "SK-1", low[0].SKU)
}

func TestSaleDecrementsProductStock(t *testing.T) {
	ctx := context.Background()
	inv, sales, _ := newInventoryFixture(t, &onlineFlag{v: true})

	require.NoError(t, inv.Add(ctx, product("SK-1", "Salt", 10)))

	sale := &models.Sale{
		ReceiptNo:     "R-1",
		ProductName:   "Salt",
		ProductSKU:    "SK-1",
		Quantity:      3,
		UnitCents:     150,
		TotalCents:    450,
		PaymentMethod: models.PaymentCash,
		Date:          "2026-08-30",
	}
	require.NoError(t, sales.Add(ctx, sale))

	got, err := inv.BySKU(ctx, "SK-1")
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.Stock)

	total, err := sales.DailyTotal(ctx, "2026-08-30")
	require.NoError(t, err)
	assert.EqualValues(t, 450, total)
}

func TestSaleWithUnknownSKUStillRecorded(t *testing.T) {
	ctx := context.Background()
	_, sales, store := newInventoryFixture(t, &onlineFlag{v: true})

	sale := &models.Sale{
		ReceiptNo:     "R-2",
		ProductName:   "Loose Eggs",
		ProductSKU:    "SK-404",
		Quantity:      6,
		UnitCents:     50,
		TotalCents:    300,
		PaymentMethod: models.PaymentCash,
		Date:          "2026-08-30",
	}
	require.NoError(t, sales.Add(ctx, sale), "missing catalogue entry must not block the sale")
	assert.Len(t, sales.Sales(), 1)

	docs, err := store.List(ctx, CollectionSales)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
