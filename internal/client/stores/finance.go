package stores

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/client/sync"
	"github.com/tallyhq/tally/internal/client/syncqueue"
	"github.com/tallyhq/tally/internal/logging"
)

// CollectionTransactions is the remote collection for the financial book.
const CollectionTransactions = "transactions"

// FinanceStore owns cash-flow transactions.
type FinanceStore struct {
	notifier
	repo   *localstore.TransactionRepository
	d      domain[*models.Transaction]
	logger logging.Logger
	now    func() time.Time

	mu           gosync.RWMutex
	transactions []*models.Transaction
}

func NewFinanceStore(
	repo *localstore.TransactionRepository,
	queue *syncqueue.Queue,
	store remote.Store,
	logger logging.Logger,
	online func() bool,
) *FinanceStore {
	s := &FinanceStore{
		repo:   repo,
		logger: logger.With("store", "finance"),
		now:    time.Now,
	}
	rec := sync.NewReconciler(CollectionTransactions, repo, store, logger, online,
		func(t *models.Transaction) models.ValidationResult { return t.Validate() },
		func() *models.Transaction { return &models.Transaction{} },
	)
	s.d = domain[*models.Transaction]{
		collection: CollectionTransactions,
		queue:      queue,
		store:      store,
		online:     online,
		logger:     s.logger,
		rec:        rec,
		markSync:   repo.MarkSync,
	}
	queue.RegisterMarker(CollectionTransactions, repo.MarkSync)
	return s
}

// Load refreshes the in-memory snapshot from the local store. Every
// mutation path ends here so reactive consumers never observe state that
// diverges from what is persisted.
func (s *FinanceStore) Load(ctx context.Context) error {
	txns, err := s.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading transactions: %w", err)
	}
	s.mu.Lock()
	s.transactions = txns
	s.mu.Unlock()
	s.notify()
	return nil
}

// Transactions returns a copy of the current snapshot.
func (s *FinanceStore) Transactions() []*models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Filtered returns the snapshot entries matching keep.
func (s *FinanceStore) Filtered(keep func(*models.Transaction) bool) []*models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, t := range s.transactions {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// DailyProfit sums income minus expense for one date, in cents, reading
// straight from the local store so queued-but-unsynced entries count.
func (s *FinanceStore) DailyProfit(ctx context.Context, date string) (int64, error) {
	txns, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, t := range txns {
		total += t.Signed()
	}
	return total, nil
}

// ProfitBetween sums income minus expense over a span of days, inclusive
// on both ends.
func (s *FinanceStore) ProfitBetween(ctx context.Context, from, to string) (int64, error) {
	txns, err := s.repo.GetByDateRange(ctx, from, to)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, t := range txns {
		total += t.Signed()
	}
	return total, nil
}

// Add validates and records a transaction. The local write always happens;
// the remote side is reached directly when online or via the queue when
// not, and the caller never blocks on the network.
func (s *FinanceStore) Add(ctx context.Context, t *models.Transaction) error {
	if err := validationError(t.Validate()); err != nil {
		return err
	}
	t.Touch(s.now())
	if _, err := s.repo.Insert(ctx, t); err != nil {
		return err
	}
	s.d.mirrorWrite(ctx, t, localstore.OpAdd)
	return s.Load(ctx)
}

// Update applies changes to an existing transaction.
func (s *FinanceStore) Update(ctx context.Context, t *models.Transaction) error {
	if err := validationError(t.Validate()); err != nil {
		return err
	}
	t.Touch(s.now())
	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	s.d.mirrorWrite(ctx, t, localstore.OpUpdate)
	return s.Load(ctx)
}

// Delete removes a transaction locally and mirrors the delete remotely,
// directly or through the queue.
func (s *FinanceStore) Delete(ctx context.Context, id int64) error {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.d.mirrorDelete(ctx, t.ID, t.RemoteID)
	return s.Load(ctx)
}

// Sync runs a full reconciliation for the financial book and refreshes the
// snapshot. The error is returned for explicit callers; background callers
// read SyncState instead.
func (s *FinanceStore) Sync(ctx context.Context) error {
	err := s.d.rec.Sync(ctx)
	if lerr := s.Load(ctx); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

// SyncState reports the reconciliation status for this domain.
func (s *FinanceStore) SyncState() sync.SyncState {
	return s.d.rec.State()
}
