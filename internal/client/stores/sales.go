package stores

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/client/sync"
	"github.com/tallyhq/tally/internal/client/syncqueue"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
)

// CollectionSales is the remote collection for receipt lines.
const CollectionSales = "sales"

// SalesStore owns receipt lines. Selling a known product also decrements
// its stock through the inventory store's repository.
type SalesStore struct {
	notifier
	repo     *localstore.SaleRepository
	products *localstore.ProductRepository
	d        domain[*models.Sale]
	logger   logging.Logger
	now      func() time.Time

	mu    gosync.RWMutex
	sales []*models.Sale
}

func NewSalesStore(
	repo *localstore.SaleRepository,
	products *localstore.ProductRepository,
	queue *syncqueue.Queue,
	store remote.Store,
	logger logging.Logger,
	online func() bool,
) *SalesStore {
	s := &SalesStore{
		repo:     repo,
		products: products,
		logger:   logger.With("store", "sales"),
		now:      time.Now,
	}
	rec := sync.NewReconciler(CollectionSales, repo, store, logger, online,
		func(sale *models.Sale) models.ValidationResult { return sale.Validate() },
		func() *models.Sale { return &models.Sale{} },
	)
	s.d = domain[*models.Sale]{
		collection: CollectionSales,
		queue:      queue,
		store:      store,
		online:     online,
		logger:     s.logger,
		rec:        rec,
		markSync:   repo.MarkSync,
	}
	queue.RegisterMarker(CollectionSales, repo.MarkSync)
	return s
}

func (s *SalesStore) Load(ctx context.Context) error {
	sales, err := s.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading sales: %w", err)
	}
	s.mu.Lock()
	s.sales = sales
	s.mu.Unlock()
	s.notify()
	return nil
}

// Sales returns a copy of the current snapshot.
func (s *SalesStore) Sales() []*models.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Sale, len(s.sales))
	copy(out, s.sales)
	return out
}

// ByDate lists receipt lines for one business day from the local store.
func (s *SalesStore) ByDate(ctx context.Context, date string) ([]*models.Sale, error) {
	return s.repo.GetByDate(ctx, date)
}

// DailyTotal sums receipts for one date, in cents.
func (s *SalesStore) DailyTotal(ctx context.Context, date string) (int64, error) {
	sales, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, sale := range sales {
		total += sale.TotalCents
	}
	return total, nil
}

// Add validates and records a sale, decrementing product stock when the
// line references a known SKU.
func (s *SalesStore) Add(ctx context.Context, sale *models.Sale) error {
	if err := validationError(sale.Validate()); err != nil {
		return err
	}
	sale.Touch(s.now())
	if _, err := s.repo.Insert(ctx, sale); err != nil {
		return err
	}

	if sale.ProductSKU != "" {
		if err := s.decrementStock(ctx, sale); err != nil {
			s.logger.Warn(ctx, "stock not adjusted for sale", "sku", sale.ProductSKU, "error", err.Error())
		}
	}

	s.d.mirrorWrite(ctx, sale, localstore.OpAdd)
	return s.Load(ctx)
}

func (s *SalesStore) decrementStock(ctx context.Context, sale *models.Sale) error {
	p, err := s.products.GetBySKU(ctx, sale.ProductSKU)
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("unknown sku %q", sale.ProductSKU)
	}
	if err != nil {
		return err
	}
	p.Stock -= sale.Quantity
	if p.Stock < 0 {
		s.logger.Warn(ctx, "stock went negative", "sku", p.SKU, "stock", p.Stock)
		p.Stock = 0
	}
	p.Touch(s.now())
	return s.products.Update(ctx, p)
}

func (s *SalesStore) Update(ctx context.Context, sale *models.Sale) error {
	if err := validationError(sale.Validate()); err != nil {
		return err
	}
	sale.Touch(s.now())
	if err := s.repo.Update(ctx, sale); err != nil {
		return err
	}
	s.d.mirrorWrite(ctx, sale, localstore.OpUpdate)
	return s.Load(ctx)
}

func (s *SalesStore) Delete(ctx context.Context, id int64) error {
	sale, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.d.mirrorDelete(ctx, sale.ID, sale.RemoteID)
	return s.Load(ctx)
}

// AttachReceipt records the storage key of an uploaded receipt photo on an
// existing sale.
func (s *SalesStore) AttachReceipt(ctx context.Context, id int64, key string) error {
	sale, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	sale.ReceiptKey = key
	sale.Touch(s.now())
	if err := s.repo.Update(ctx, sale); err != nil {
		return err
	}
	s.d.mirrorWrite(ctx, sale, localstore.OpUpdate)
	return s.Load(ctx)
}

func (s *SalesStore) Sync(ctx context.Context) error {
	err := s.d.rec.Sync(ctx)
	if lerr := s.Load(ctx); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

func (s *SalesStore) SyncState() sync.SyncState {
	return s.d.rec.State()
}
