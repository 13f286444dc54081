package stores

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/client/syncqueue"
	"github.com/tallyhq/tally/internal/logging"
)

// Manager wires the repositories, the sync queue and the remote store into
// the four domain stores, and tracks connectivity for all of them.
type Manager struct {
	Sales     *SalesStore
	Finance   *FinanceStore
	Contacts  *ContactsStore
	Inventory *InventoryStore

	repos  *localstore.Repositories
	queue  *syncqueue.Queue
	store  remote.Store
	logger logging.Logger

	online atomic.Bool
}

func NewManager(repos *localstore.Repositories, store remote.Store, logger logging.Logger) *Manager {
	m := &Manager{
		repos:  repos,
		store:  store,
		logger: logger,
	}
	m.queue = syncqueue.New(repos.Queue, store, logger)
	online := m.Online

	m.Sales = NewSalesStore(repos.Sales, repos.Products, m.queue, store, logger, online)
	m.Finance = NewFinanceStore(repos.Transactions, m.queue, store, logger, online)
	m.Contacts = NewContactsStore(repos.Contacts, repos.Categories, m.queue, store, logger, online)
	m.Inventory = NewInventoryStore(repos.Products, m.queue, store, logger, online)
	return m
}

// Load populates every store's snapshot from the local database.
func (m *Manager) Load(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Sales.Load(ctx) })
	g.Go(func() error { return m.Finance.Load(ctx) })
	g.Go(func() error { return m.Contacts.Load(ctx) })
	g.Go(func() error { return m.Inventory.Load(ctx) })
	return g.Wait()
}

func (m *Manager) Online() bool {
	return m.online.Load()
}

func (m *Manager) Queue() *syncqueue.Queue {
	return m.queue
}

// PendingOps reports the number of queued operations awaiting replay.
func (m *Manager) PendingOps(ctx context.Context) (int64, error) {
	return m.queue.Pending(ctx)
}

// SyncAll reconciles every collection. Contacts and categories share one
// Sync call; the other stores run concurrently.
func (m *Manager) SyncAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.Sales.Sync(ctx) })
	g.Go(func() error { return m.Finance.Sync(ctx) })
	g.Go(func() error { return m.Contacts.Sync(ctx) })
	g.Go(func() error { return m.Inventory.Sync(ctx) })
	return g.Wait()
}

func (m *Manager) setOnline(ctx context.Context, online bool) {
	if !m.online.CompareAndSwap(!online, online) {
		return
	}
	if online {
		m.logger.Info(ctx, "connectivity restored")
	} else {
		m.logger.Warn(ctx, "server unreachable, switching to offline mode")
	}
}

// StartOnlineWatcher pings the server every interval and flips the shared
// connectivity flag. When connectivity comes back it first replays the
// queued operations, then runs a full reconciliation. Blocks until ctx is
// cancelled; run it on its own goroutine.
func (m *Manager) StartOnlineWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := m.store.Ping(pingCtx)
			cancel()

			if err != nil {
				m.setOnline(ctx, false)
				continue
			}

			wasOffline := !m.online.Load()
			m.setOnline(ctx, true)
			if wasOffline {
				if err := m.queue.Process(ctx); err != nil {
					m.logger.Warn(ctx, "queue replay after reconnect failed", "error", err.Error())
				}
				if err := m.SyncAll(ctx); err != nil {
					m.logger.Warn(ctx, "sync after reconnect failed", "error", err.Error())
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) Close() error {
	return m.repos.Close()
}
