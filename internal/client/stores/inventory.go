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

// CollectionProducts is the remote collection for the product catalogue.
const CollectionProducts = "products"

// InventoryStore owns the product catalogue and stock levels.
type InventoryStore struct {
	notifier
	products *localstore.ProductRepository
	d        domain[*models.Product]
	logger   logging.Logger
	now      func() time.Time

	mu   gosync.RWMutex
	list []*models.Product
}

func NewInventoryStore(
	products *localstore.ProductRepository,
	queue *syncqueue.Queue,
	store remote.Store,
	logger logging.Logger,
	online func() bool,
) *InventoryStore {
	s := &InventoryStore{
		products: products,
		logger:   logger.With("store", "inventory"),
		now:      time.Now,
	}
	rec := sync.NewReconciler(CollectionProducts, products, store, logger, online,
		func(p *models.Product) models.ValidationResult { return p.Validate() },
		func() *models.Product { return &models.Product{} },
	)
	s.d = domain[*models.Product]{
		collection: CollectionProducts,
		queue:      queue,
		store:      store,
		online:     online,
		logger:     s.logger,
		rec:        rec,
		markSync:   products.MarkSync,
	}
	queue.RegisterMarker(CollectionProducts, products.MarkSync)
	return s
}

func (s *InventoryStore) Load(ctx context.Context) error {
	list, err := s.products.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading products: %w", err)
	}
	s.mu.Lock()
	s.list = list
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *InventoryStore) Products() []*models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Product, len(s.list))
	copy(out, s.list)
	return out
}

func (s *InventoryStore) BySKU(ctx context.Context, sku string) (*models.Product, error) {
	return s.products.GetBySKU(ctx, sku)
}

// LowStock lists products whose quantity is at or below the threshold.
func (s *InventoryStore) LowStock(ctx context.Context, threshold int64) ([]*models.Product, error) {
	return s.products.GetLowStock(ctx, threshold)
}

func (s *InventoryStore) Add(ctx context.Context, p *models.Product) error {
	if err := validationError(p.Validate()); err != nil {
		return err
	}
	if p.SKU != "" {
		if _, err := s.products.GetBySKU(ctx, p.SKU); err == nil {
			return fmt.Errorf("%w: product with sku %q already exists", common.ErrValidation, p.SKU)
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}
	p.Touch(s.now())
	if _, err := s.products.Insert(ctx, p); err != nil {
		return err
	}
	s.d.mirrorWrite(ctx, p, localstore.OpAdd)
	return s.Load(ctx)
}

func (s *InventoryStore) Update(ctx context.Context, p *models.Product) error {
	if err := validationError(p.Validate()); err != nil {
		return err
	}
	p.Touch(s.now())
	if err := s.products.Update(ctx, p); err != nil {
		return err
	}
	s.d.mirrorWrite(ctx, p, localstore.OpUpdate)
	return s.Load(ctx)
}

// AdjustStock shifts the quantity by delta, clamping at zero.
func (s *InventoryStore) AdjustStock(ctx context.Context, id int64, delta int64) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	p.Stock += delta
	if p.Stock < 0 {
		s.logger.Warn(ctx, "stock adjustment went negative, clamping to zero", "productId", id, "delta", delta)
		p.Stock = 0
	}
	return s.Update(ctx, p)
}

func (s *InventoryStore) Delete(ctx context.Context, id int64) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.d.mirrorDelete(ctx, p.ID, p.RemoteID)
	return s.Load(ctx)
}

func (s *InventoryStore) Sync(ctx context.Context) error {
	err := s.d.rec.Sync(ctx)
	if lerr := s.Load(ctx); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

func (s *InventoryStore) SyncState() sync.SyncState {
	return s.d.rec.State()
}
