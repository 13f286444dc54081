// Package stores holds the domain stores consumed by the UI layer: sales,
// finance, contacts and inventory. Each store owns one record family,
// writes through to the local store immediately, mirrors mutations to the
// remote store directly or via the sync queue, and republishes immutable
// snapshots to subscribers.
package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	gosync "sync"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/client/sync"
	"github.com/tallyhq/tally/internal/client/syncqueue"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
)

// notifier is a minimal subscribe/notify bus. Subscribers re-read the
// store's snapshot; no payload is carried, so the sync engine stays
// UI-framework-agnostic.
type notifier struct {
	mu   gosync.Mutex
	subs []func()
}

// Subscribe registers fn to run after every state change.
func (n *notifier) Subscribe(fn func()) {
	n.mu.Lock()
	n.subs = append(n.subs, fn)
	n.mu.Unlock()
}

func (n *notifier) notify() {
	n.mu.Lock()
	subs := make([]func(), len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// domain bundles the sync plumbing shared by every store: the queue, the
// remote store, the reconciler and the marker that settles local rows.
type domain[T sync.Keyed] struct {
	collection string
	queue      *syncqueue.Queue
	store      remote.Store
	online     func() bool
	logger     logging.Logger
	rec        *sync.Reconciler[T]
	markSync   func(ctx context.Context, id int64, status models.SyncStatus, remoteID string) error
}

// mirrorWrite propagates a local add/update to the remote side. The local
// write has already succeeded; this never rolls it back. Online, a direct
// write is attempted and a failure degrades to the queue; offline, the
// operation is queued outright and the caller returns immediately.
func (d *domain[T]) mirrorWrite(ctx context.Context, rec T, opType string) {
	m := rec.Meta()
	payload, err := json.Marshal(rec)
	if err != nil {
		d.logger.Error(ctx, "failed to marshal record for sync", "collection", d.collection, "error", err.Error())
		return
	}

	if d.online() {
		if d.writeDirect(ctx, rec, opType, payload) {
			return
		}
		// Fall through: leave the record pending and queue the replay.
	}

	op := &localstore.Operation{
		Type:       opType,
		Collection: d.collection,
		DocID:      m.RemoteID,
		RecordID:   m.ID,
		Payload:    payload,
	}
	if err := d.queue.Enqueue(ctx, op, nil); err != nil {
		d.logger.Error(ctx, "failed to enqueue operation", "collection", d.collection, "error", err.Error())
		_ = d.markSync(ctx, m.ID, models.StatusError, "")
		return
	}
	d.rec.AddPending(1)
}

// writeDirect attempts the immediate remote write; reports success.
func (d *domain[T]) writeDirect(ctx context.Context, rec T, opType string, payload []byte) bool {
	m := rec.Meta()

	var err error
	remoteID := m.RemoteID
	switch {
	case opType == localstore.OpAdd || remoteID == "":
		remoteID, err = d.store.Create(ctx, d.collection, m.ID, payload, m.UpdatedAt)
	default:
		err = d.store.Update(ctx, d.collection, remoteID, payload, m.UpdatedAt)
		if errors.Is(err, common.ErrNotFound) {
			d.logger.Warn(ctx, "remote document missing on update, creating", "collection", d.collection, "docId", remoteID)
			remoteID, err = d.store.Create(ctx, d.collection, m.ID, payload, m.UpdatedAt)
		}
	}
	if err != nil {
		d.logger.Warn(ctx, "direct remote write failed, queueing",
			"collection", d.collection, "recordId", m.ID, "error", err.Error())
		if merr := d.markSync(ctx, m.ID, models.StatusError, ""); merr != nil {
			d.logger.Error(ctx, "failed to mark record", "error", merr.Error())
		}
		return false
	}

	if err := d.markSync(ctx, m.ID, models.StatusSynced, remoteID); err != nil {
		d.logger.Error(ctx, "failed to mark record synced", "error", err.Error())
	}
	m.RemoteID = remoteID
	m.SyncStatus = models.StatusSynced
	return true
}

// mirrorDelete propagates a local delete. Queued writes for the row are
// cancelled first so a later replay cannot resurrect it. Records never
// pushed have no remote counterpart, so nothing further is mirrored.
func (d *domain[T]) mirrorDelete(ctx context.Context, recordID int64, remoteID string) {
	if recordID != 0 {
		n, err := d.queue.CancelRecord(ctx, d.collection, recordID)
		if err != nil {
			d.logger.Error(ctx, "failed to cancel queued writes for deleted record",
				"collection", d.collection, "recordId", recordID, "error", err.Error())
		} else if n > 0 {
			d.rec.AddPending(-n)
		}
	}
	if remoteID == "" {
		return
	}
	if d.online() {
		if err := d.store.Delete(ctx, d.collection, remoteID); err == nil {
			return
		} else {
			d.logger.Warn(ctx, "direct remote delete failed, queueing", "collection", d.collection, "docId", remoteID, "error", err.Error())
		}
	}
	op := &localstore.Operation{Type: localstore.OpDelete, Collection: d.collection, DocID: remoteID}
	if err := d.queue.Enqueue(ctx, op, nil); err != nil {
		d.logger.Error(ctx, "failed to enqueue delete", "collection", d.collection, "error", err.Error())
		return
	}
	d.rec.AddPending(1)
}

func validationError(res models.ValidationResult) error {
	if res.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(res.Errors, "; "))
}
