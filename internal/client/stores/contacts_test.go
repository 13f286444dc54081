package stores

import (
	"context"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/syncqueue"
	"github.com/tallyhq/tally/internal/logging"
)

// spyLogger records warning lines so tests can assert on them.
type spyLogger struct {
	mu    gosync.Mutex
	warns []string
}

func (l *spyLogger) Info(ctx context.Context, msg string, args ...any) {}

func (l *spyLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *spyLogger) Error(ctx context.Context, msg string, args ...any) {}

func (l *spyLogger) With(args ...any) logging.Logger { return l }

func (l *spyLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func newContactsFixture(t *testing.T, online *onlineFlag, logger logging.Logger) (*ContactsStore, *syncqueue.Queue, *memStore) {
	t.Helper()
	repos, err := localstore.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	store := newMemStore()
	queue := syncqueue.New(repos.Queue, store, logging.Nop())
	cs := NewContactsStore(repos.Contacts, repos.Categories, queue, store, logger, online.get)
	return cs, queue, store
}

func TestContactAddWarnsOnNameCollision(t *testing.T) {
	ctx := context.Background()
	logger := &spyLogger{}
	cs, _, _ := newContactsFixture(t, &onlineFlag{v: true}, logger)

	require.NoError(t, cs.AddCategory(ctx, &models.Category{Name: "Suppliers", Scope: models.ScopeContacts}))
	catKey := cs.Categories()[0].Key()

	first := &models.Contact{Name: "Amara Osei", Email: "amara@example.com", CategoryID: catKey}
	require.NoError(t, cs.Add(ctx, first))

	// Same name under a different email is a second person, not a
	// duplicate: both rows survive and a warning is logged.
	second := &models.Contact{Name: "amara osei", Email: "osei@example.com", CategoryID: catKey}
	require.NoError(t, cs.Add(ctx, second))

	require.Len(t, cs.Contacts(), 2)
	assert.Contains(t, logger.warnings(), "contact name matches an existing entry")
}

func TestContactAddDistinctNamesDoNotWarn(t *testing.T) {
	ctx := context.Background()
	logger := &spyLogger{}
	cs, _, _ := newContactsFixture(t, &onlineFlag{v: true}, logger)

	require.NoError(t, cs.AddCategory(ctx, &models.Category{Name: "Suppliers", Scope: models.ScopeContacts}))
	catKey := cs.Categories()[0].Key()

	require.NoError(t, cs.Add(ctx, &models.Contact{Name: "Amara Osei", CategoryID: catKey}))
	require.NoError(t, cs.Add(ctx, &models.Contact{Name: "Kofi Mensah", CategoryID: catKey}))

	assert.NotContains(t, logger.warnings(), "contact name matches an existing entry")
}
