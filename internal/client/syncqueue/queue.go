// Package syncqueue drains the durable operation queue against the remote
// document store. Operations accumulate while the client is offline (or
// after failed direct writes) and are replayed in insertion order when
// connectivity returns.
package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
)

// DefaultMaxRetries is how many failed attempts an operation gets before it
// is dropped and reported.
const DefaultMaxRetries = 3

// RecordMarker settles the sync status of the local row an operation
// belongs to once the operation's fate is known.
type RecordMarker func(ctx context.Context, recordID int64, status models.SyncStatus, remoteID string) error

// Queue replays pending operations. Callbacks are session-scoped: they
// cannot be persisted, so after a restart an over-cap operation is still
// dropped and its record marked, only the callback is skipped.
type Queue struct {
	repo       *localstore.QueueRepository
	store      remote.Store
	logger     logging.Logger
	maxRetries int

	mu        sync.Mutex
	callbacks map[int64]func(error)
	markers   map[string]RecordMarker

	processing sync.Mutex // one pass at a time
}

func New(repo *localstore.QueueRepository, store remote.Store, logger logging.Logger) *Queue {
	return &Queue{
		repo:       repo,
		store:      store,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		callbacks:  make(map[int64]func(error)),
		markers:    make(map[string]RecordMarker),
	}
}

// RegisterMarker wires a collection to the marker that settles its rows.
// Domain stores register themselves at construction.
func (q *Queue) RegisterMarker(collection string, m RecordMarker) {
	q.mu.Lock()
	q.markers[collection] = m
	q.mu.Unlock()
}

// Enqueue appends an operation without touching the network. onError, if
// non-nil, fires exactly once should the operation exhaust its retries.
func (q *Queue) Enqueue(ctx context.Context, op *localstore.Operation, onError func(error)) error {
	op.CreatedAt = time.Now().UnixMilli()
	id, err := q.repo.Enqueue(ctx, op)
	if err != nil {
		return err
	}
	if onError != nil {
		q.mu.Lock()
		q.callbacks[id] = onError
		q.mu.Unlock()
	}
	return nil
}

// CancelRecord discards queued add/update operations for a local row that
// was deleted before they replayed, and returns how many were discarded.
// Without this a delete of a never-pushed record would be undone the next
// time the queue drains.
func (q *Queue) CancelRecord(ctx context.Context, collection string, recordID int64) (int64, error) {
	ids, err := q.repo.DeleteByRecord(ctx, collection, recordID)
	if err != nil {
		return 0, err
	}
	q.mu.Lock()
	for _, id := range ids {
		delete(q.callbacks, id)
	}
	q.mu.Unlock()
	return int64(len(ids)), nil
}

// Pending reports how many operations are waiting.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	return q.repo.Count(ctx)
}

// Process attempts every queued operation once, in insertion order.
// Individual failures are non-fatal: the operation stays queued with its
// retry counter bumped, or is dropped and reported once the cap is hit.
// The returned error covers only queue-infrastructure failures.
func (q *Queue) Process(ctx context.Context) error {
	q.processing.Lock()
	defer q.processing.Unlock()

	ops, err := q.repo.List(ctx)
	if err != nil {
		return err
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := q.apply(ctx, op); err != nil {
			q.fail(ctx, op, err)
			continue
		}
		if err := q.repo.Delete(ctx, op.ID); err != nil {
			return err
		}
		q.dropCallback(op.ID)
	}
	return nil
}

// apply performs one operation against the remote store and settles the
// owning record on success.
func (q *Queue) apply(ctx context.Context, op *localstore.Operation) error {
	switch op.Type {
	case localstore.OpAdd:
		return q.applyAdd(ctx, op)
	case localstore.OpUpdate:
		return q.applyUpdate(ctx, op)
	case localstore.OpDelete:
		return q.store.Delete(ctx, op.Collection, op.DocID)
	default:
		// Unknown type is a bug, not a transient failure; drop it loudly.
		q.logger.Error(ctx, "unknown queued operation type", "type", op.Type, "id", op.ID)
		return nil
	}
}

// applyAdd creates the remote document unless one already exists for this
// local row, which keeps replays idempotent: a create that succeeded
// remotely but failed to confirm locally is adopted, not duplicated.
func (q *Queue) applyAdd(ctx context.Context, op *localstore.Operation) error {
	if op.RecordID != 0 {
		existing, err := q.store.FindByLocalID(ctx, op.Collection, op.RecordID)
		if err == nil {
			q.logger.Warn(ctx, "queued add already applied, adopting remote document",
				"collection", op.Collection, "recordId", op.RecordID, "docId", existing.ID)
			return q.mark(ctx, op, models.StatusSynced, existing.ID)
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}

	docID, err := q.store.Create(ctx, op.Collection, op.RecordID, json.RawMessage(op.Payload), updatedAtFromPayload(op.Payload))
	if err != nil {
		return err
	}
	return q.mark(ctx, op, models.StatusSynced, docID)
}

func (q *Queue) applyUpdate(ctx context.Context, op *localstore.Operation) error {
	docID := op.DocID
	if docID == "" {
		// The record had no remote identifier when the update was queued;
		// resolve it now so we update rather than duplicate.
		existing, err := q.store.FindByLocalID(ctx, op.Collection, op.RecordID)
		if err == nil {
			docID = existing.ID
		} else if !errors.Is(err, common.ErrNotFound) {
			return err
		}
	}

	if docID == "" {
		return q.applyAdd(ctx, op)
	}

	err := q.store.Update(ctx, op.Collection, docID, json.RawMessage(op.Payload), updatedAtFromPayload(op.Payload))
	if errors.Is(err, common.ErrNotFound) {
		q.logger.Warn(ctx, "queued update targeted a missing document, creating instead",
			"collection", op.Collection, "docId", docID)
		return q.applyAdd(ctx, op)
	}
	if err != nil {
		return err
	}
	return q.mark(ctx, op, models.StatusSynced, docID)
}

func (q *Queue) mark(ctx context.Context, op *localstore.Operation, status models.SyncStatus, remoteID string) error {
	if op.RecordID == 0 {
		return nil
	}
	q.mu.Lock()
	marker := q.markers[op.Collection]
	q.mu.Unlock()
	if marker == nil {
		return nil
	}
	if err := marker(ctx, op.RecordID, status, remoteID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Row deleted locally while the op was queued; nothing to settle.
			return nil
		}
		return err
	}
	return nil
}

// fail bumps the retry counter and, past the cap, drops the operation:
// its callback fires exactly once and the owning record is marked error.
func (q *Queue) fail(ctx context.Context, op *localstore.Operation, cause error) {
	retries, err := q.repo.IncrementRetries(ctx, op.ID)
	if err != nil {
		q.logger.Error(ctx, "failed to record retry", "id", op.ID, "error", err.Error())
		return
	}

	if retries < q.maxRetries {
		q.logger.Warn(ctx, "queued operation failed, will retry",
			"id", op.ID, "collection", op.Collection, "retries", retries, "error", cause.Error())
		return
	}

	q.logger.Error(ctx, "queued operation dropped after retry limit",
		"id", op.ID, "collection", op.Collection, "error", cause.Error())

	if err := q.repo.Delete(ctx, op.ID); err != nil {
		q.logger.Error(ctx, "failed to drop operation", "id", op.ID, "error", err.Error())
		return
	}
	if err := q.mark(ctx, op, models.StatusError, ""); err != nil {
		q.logger.Error(ctx, "failed to mark record after drop", "id", op.ID, "error", err.Error())
	}

	q.mu.Lock()
	cb := q.callbacks[op.ID]
	delete(q.callbacks, op.ID)
	q.mu.Unlock()
	if cb != nil {
		cb(common.ErrRetriesExceeded)
	}
}

func (q *Queue) dropCallback(id int64) {
	q.mu.Lock()
	delete(q.callbacks, id)
	q.mu.Unlock()
}

// updatedAtFromPayload extracts the client timestamp carried in the
// marshalled record, so the remote copy keeps the conflict tie-breaker.
func updatedAtFromPayload(payload []byte) int64 {
	var probe struct {
		UpdatedAt int64 `json:"updatedAt"`
	}
	_ = json.Unmarshal(payload, &probe)
	return probe.UpdatedAt
}
