package sync

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
)

// fakeStore is an in-memory remote.Store.
type fakeStore struct {
	mu     gosync.Mutex
	docs   []remote.Document
	nextID int

	batchCalls int
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) assignID() string {
	f.nextID++
	return fmt.Sprintf("doc-%d", f.nextID)
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) ServerTime(ctx context.Context) (time.Time, error) { return time.Now(), nil }

func (f *fakeStore) List(ctx context.Context, collection string) ([]remote.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []remote.Document
	for _, d := range f.docs {
		if d.Collection == collection {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) FindByLocalID(ctx context.Context, collection string, localID int64) (*remote.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.Collection == collection && d.LocalID == localID {
			doc := d
			return &doc, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeStore) Create(ctx context.Context, collection string, localID int64, data json.RawMessage, updatedAt int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.create(collection, localID, data, updatedAt), nil
}

func (f *fakeStore) create(collection string, localID int64, data json.RawMessage, updatedAt int64) string {
	id := f.assignID()
	f.docs = append(f.docs, remote.Document{
		ID: id, Collection: collection, LocalID: localID,
		Data: data, UpdatedAt: updatedAt, ServerUpdatedAt: time.Now().UnixMilli(),
	})
	return id
}

func (f *fakeStore) Update(ctx context.Context, collection, docID string, data json.RawMessage, updatedAt int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update(collection, docID, data, updatedAt)
}

func (f *fakeStore) update(collection, docID string, data json.RawMessage, updatedAt int64) error {
	for i := range f.docs {
		if f.docs[i].ID == docID {
			f.docs[i].Data = data
			f.docs[i].UpdatedAt = updatedAt
			f.docs[i].ServerUpdatedAt = time.Now().UnixMilli()
			return nil
		}
	}
	return common.ErrNotFound
}

func (f *fakeStore) Delete(ctx context.Context, collection, docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delete(docID)
	return nil
}

func (f *fakeStore) delete(docID string) {
	for i := range f.docs {
		if f.docs[i].ID == docID {
			f.docs = append(f.docs[:i], f.docs[i+1:]...)
			return
		}
	}
}

func (f *fakeStore) Batch(ctx context.Context, ops []remote.Op) ([]remote.OpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if len(ops) > common.MaxBatchOps {
		return nil, common.ErrBatchTooLarge
	}
	results := make([]remote.OpResult, len(ops))
	for i, op := range ops {
		switch op.Type {
		case "add":
			results[i] = remote.OpResult{DocID: f.create(op.Collection, op.LocalID, op.Data, op.UpdatedAt)}
		case "update":
			if err := f.update(op.Collection, op.DocID, op.Data, op.UpdatedAt); err != nil {
				id := f.create(op.Collection, op.LocalID, op.Data, op.UpdatedAt)
				results[i] = remote.OpResult{DocID: id, Created: true}
				continue
			}
			results[i] = remote.OpResult{DocID: op.DocID}
		case "delete":
			f.delete(op.DocID)
			results[i] = remote.OpResult{DocID: op.DocID}
		}
	}
	return results, nil
}

// fakeTable is an in-memory LocalTable.
type fakeTable struct {
	mu      gosync.Mutex
	records []*models.Contact
}

func (f *fakeTable) GetAll(ctx context.Context) ([]*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Contact, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeTable) ReplaceAll(ctx context.Context, records []*models.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	return nil
}

func alwaysOnline() bool  { return true }
func alwaysOffline() bool { return false }

func newTestReconciler(table *fakeTable, store *fakeStore, online func() bool) *Reconciler[*models.Contact] {
	return NewReconciler("contacts", table, store, logging.Nop(), online,
		func(c *models.Contact) models.ValidationResult { return c.Validate() },
		func() *models.Contact { return &models.Contact{} },
	)
}

func storedContact(name, email string, id int64, updatedAt int64) *models.Contact {
	c := contact(name, email, id, "", updatedAt)
	c.SyncStatus = models.StatusPending
	return c
}

func TestSyncOfflineReturnsErrOffline(t *testing.T) {
	r := newTestReconciler(&fakeTable{}, newFakeStore(), alwaysOffline)

	err := r.Sync(context.Background())
	require.ErrorIs(t, err, common.ErrOffline)
	assert.NotEmpty(t, r.State().Error)
}

func TestSyncBootstrapPushesLocalRecords(t *testing.T) {
	table := &fakeTable{records: []*models.Contact{
		storedContact("Amina", "a@example.com", 1, 100),
		storedContact("Bakari", "b@example.com", 2, 200),
	}}
	store := newFakeStore()
	r := newTestReconciler(table, store, alwaysOnline)

	require.NoError(t, r.Sync(context.Background()))

	docs, _ := store.List(context.Background(), "contacts")
	assert.Len(t, docs, 2)

	// Local rows came back with remote ids and synced status.
	recs, err := table.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.NotEmpty(t, rec.RemoteID)
		assert.Equal(t, models.StatusSynced, rec.SyncStatus)
	}

	state := r.State()
	assert.NotZero(t, state.LastSync)
	assert.Zero(t, state.PendingChanges)
	assert.Empty(t, state.Error)
}

func TestSyncIsIdempotent(t *testing.T) {
	table := &fakeTable{records: []*models.Contact{
		storedContact("Amina", "a@example.com", 1, 100),
	}}
	store := newFakeStore()
	r := newTestReconciler(table, store, alwaysOnline)

	require.NoError(t, r.Sync(context.Background()))
	require.NoError(t, r.Sync(context.Background()))
	require.NoError(t, r.Sync(context.Background()))

	docs, _ := store.List(context.Background(), "contacts")
	assert.Len(t, docs, 1, "repeated syncs must not duplicate documents")
}

func TestSyncValidationGateAbortsWholeRun(t *testing.T) {
	bad := storedContact("", "", 2, 100) // no name, no category
	table := &fakeTable{records: []*models.Contact{
		storedContact("Amina", "a@example.com", 1, 100),
		bad,
	}}
	store := newFakeStore()
	r := newTestReconciler(table, store, alwaysOnline)

	err := r.Sync(context.Background())
	require.ErrorIs(t, err, common.ErrValidation)

	docs, _ := store.List(context.Background(), "contacts")
	assert.Empty(t, docs, "no partial merge may be committed")

	// The valid record is still local-pending, untouched.
	recs, _ := table.GetAll(context.Background())
	assert.Equal(t, models.StatusPending, recs[0].SyncStatus)
}

func TestSyncNewerLocalOverwritesRemote(t *testing.T) {
	store := newFakeStore()
	olderRemote := contact("Amina", "a@example.com", 0, "", 100)
	data, _ := json.Marshal(olderRemote)
	docID, _ := store.Create(context.Background(), "contacts", 0, data, 100)

	newerLocal := storedContact("Amina", "a@example.com", 1, 500)
	newerLocal.Phone = "+254700000001"
	table := &fakeTable{records: []*models.Contact{newerLocal}}

	r := newTestReconciler(table, store, alwaysOnline)
	require.NoError(t, r.Sync(context.Background()))

	docs, _ := store.List(context.Background(), "contacts")
	require.Len(t, docs, 1)
	assert.Equal(t, docID, docs[0].ID, "local win must update the existing document, not create a new one")

	var got models.Contact
	require.NoError(t, json.Unmarshal(docs[0].Data, &got))
	assert.Equal(t, "+254700000001", got.Phone)
	assert.Equal(t, int64(500), got.UpdatedAt)
}

func TestSyncNewerRemoteOverwritesLocal(t *testing.T) {
	store := newFakeStore()
	newerRemote := contact("Amina", "a@example.com", 0, "", 900)
	newerRemote.Phone = "+254711111111"
	data, _ := json.Marshal(newerRemote)
	_, _ = store.Create(context.Background(), "contacts", 0, data, 900)

	table := &fakeTable{records: []*models.Contact{
		storedContact("Amina", "a@example.com", 1, 100),
	}}

	r := newTestReconciler(table, store, alwaysOnline)
	require.NoError(t, r.Sync(context.Background()))

	recs, _ := table.GetAll(context.Background())
	require.Len(t, recs, 1)
	assert.Equal(t, "+254711111111", recs[0].Phone)
	assert.Equal(t, int64(900), recs[0].UpdatedAt)
}

func TestSyncCleansRemoteDuplicates(t *testing.T) {
	store := newFakeStore()
	mk := func(updatedAt int64) json.RawMessage {
		c := contact("Amina", "a@example.com", 0, "", updatedAt)
		data, _ := json.Marshal(c)
		return data
	}
	_, _ = store.Create(context.Background(), "contacts", 0, mk(100), 100)
	keepID, _ := store.Create(context.Background(), "contacts", 0, mk(300), 300)
	_, _ = store.Create(context.Background(), "contacts", 0, mk(200), 200)

	r := newTestReconciler(&fakeTable{}, store, alwaysOnline)
	require.NoError(t, r.Sync(context.Background()))

	docs, _ := store.List(context.Background(), "contacts")
	require.Len(t, docs, 1, "duplicate documents must be deleted remotely")
	assert.Equal(t, keepID, docs[0].ID)
}

func TestSyncConcurrentSecondCallIsNoOp(t *testing.T) {
	r := newTestReconciler(&fakeTable{}, newFakeStore(), alwaysOnline)
	r.inProgress.Store(true)

	err := r.Sync(context.Background())
	assert.NoError(t, err)
	assert.True(t, r.State().InProgress)
}

func TestStatePendingCounter(t *testing.T) {
	r := newTestReconciler(&fakeTable{}, newFakeStore(), alwaysOnline)
	r.AddPending(2)
	r.AddPending(1)
	assert.Equal(t, int64(3), r.State().PendingChanges)
}
