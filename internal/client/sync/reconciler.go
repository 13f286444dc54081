package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
)

// LocalTable is the slice of the local store a reconciler needs: read the
// whole table, and replace it wholesale on pull-back.
type LocalTable[T Keyed] interface {
	GetAll(ctx context.Context) ([]T, error)
	ReplaceAll(ctx context.Context, records []T) error
}

// Reconciler brings one domain's local table and remote collection into
// agreement. Construct one per domain with NewReconciler; runs for
// different domains touch disjoint collections and may interleave freely.
type Reconciler[T Keyed] struct {
	collection string
	local      LocalTable[T]
	store      remote.Store
	logger     logging.Logger
	online     func() bool
	validate   func(T) models.ValidationResult
	key        func(T) string
	newT       func() T
	now        func() time.Time

	inProgress atomic.Bool
	state      stateBox
}

func NewReconciler[T Keyed](
	collection string,
	local LocalTable[T],
	store remote.Store,
	logger logging.Logger,
	online func() bool,
	validate func(T) models.ValidationResult,
	newT func() T,
) *Reconciler[T] {
	return &Reconciler[T]{
		collection: collection,
		local:      local,
		store:      store,
		logger:     logger.With("collection", collection),
		online:     online,
		validate:   validate,
		key:        func(t T) string { return t.Key() },
		newT:       newT,
		now:        time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (r *Reconciler[T]) WithClock(now func() time.Time) *Reconciler[T] {
	r.now = now
	return r
}

// State returns a snapshot of the domain's sync status.
func (r *Reconciler[T]) State() SyncState {
	s := r.state.snapshot()
	s.InProgress = r.inProgress.Load()
	return s
}

// AddPending is called by the owning store on every local pending write.
func (r *Reconciler[T]) AddPending(n int64) {
	r.state.update(func(s *SyncState) { s.PendingChanges += n })
}

// Sync runs one full reconciliation cycle:
// fetch both sides, validate, merge, push, clean up remote duplicates,
// pull the merged set back into the local store.
//
// A second concurrent call for the same domain is a logged no-op. Invoked
// while offline it records and returns common.ErrOffline without touching
// any data. Any error is captured on the state as well as returned;
// background callers are expected to swallow it, explicit callers to
// surface it.
func (r *Reconciler[T]) Sync(ctx context.Context) error {
	if !r.inProgress.CompareAndSwap(false, true) {
		r.logger.Info(ctx, "sync already in progress, skipping")
		return nil
	}
	defer r.inProgress.Store(false)

	if err := r.run(ctx); err != nil {
		r.state.update(func(s *SyncState) { s.Error = err.Error() })
		return err
	}

	r.state.update(func(s *SyncState) {
		s.LastSync = r.now().UnixMilli()
		s.PendingChanges = 0
		s.Error = ""
	})
	return nil
}

func (r *Reconciler[T]) run(ctx context.Context) error {
	if !r.online() {
		return common.ErrOffline
	}

	local, err := r.local.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("reading local records: %w", err)
	}

	docs, err := r.store.List(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("reading remote records: %w", err)
	}
	remoteRecs, err := decodeAll(docs, r.newT)
	if err != nil {
		return fmt.Errorf("decoding remote records: %w", err)
	}

	// Validation gate: the whole sync aborts on any invalid record, with
	// every failure listed. No partial merge is ever committed.
	if err := r.validateSets(local, remoteRecs); err != nil {
		return err
	}

	local, localDups := SplitDuplicates(local, r.key)
	remoteRecs, remoteDups := SplitDuplicates(remoteRecs, r.key)
	for _, d := range localDups {
		r.logger.Warn(ctx, "local duplicate excluded from merge", "key", r.key(d))
	}
	for _, d := range remoteDups {
		r.logger.Warn(ctx, "remote duplicate excluded from merge", "key", r.key(d))
	}

	res := Merge(local, remoteRecs, r.key)
	for _, d := range res.Duplicates {
		r.logger.Warn(ctx, "conflicting record set aside", "key", r.key(d))
	}
	r.logger.Info(ctx, "merge complete",
		"merged", len(res.Merged), "localWins", res.LocalWins, "remoteWins", res.RemoteWins,
		"localOnly", res.LocalOnly, "remoteOnly", res.RemoteOnly, "duplicates", len(res.Duplicates))

	merged := res.Merged
	if len(merged) == 0 {
		// First-sync bootstrap: nothing merged but unpushed local rows
		// exist, upload them as brand-new documents.
		merged = unpushed(local)
		if len(merged) == 0 {
			return r.pullBack(ctx, nil)
		}
		r.logger.Info(ctx, "bootstrap upload of local records", "count", len(merged))
	}

	if err := r.push(ctx, merged); err != nil {
		return err
	}

	if err := r.cleanRemoteDuplicates(ctx); err != nil {
		// Cleanup is best-effort: the merge itself already succeeded.
		r.logger.Warn(ctx, "remote duplicate cleanup failed", "error", err.Error())
	}

	return r.pullBack(ctx, merged)
}

func (r *Reconciler[T]) validateSets(local, remoteRecs []T) error {
	failed := models.ValidateBatch(local, r.key, r.validate)
	failed = append(failed, models.ValidateBatch(remoteRecs, r.key, r.validate)...)
	if len(failed) == 0 {
		return nil
	}
	lines := make([]string, len(failed))
	for i, f := range failed {
		lines[i] = f.String()
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(lines, "; "))
}

// push writes the merged set to the remote store in batches of at most
// common.MaxBatchOps. Records with a remote identifier are updated (the
// server re-creates a missing document under the same id, reported back as
// a warning here); the rest are created and their assigned identifiers
// captured. Failures are isolated per batch, not per whole push.
func (r *Reconciler[T]) push(ctx context.Context, records []T) error {
	for start := 0; start < len(records); start += common.MaxBatchOps {
		end := start + common.MaxBatchOps
		if end > len(records) {
			end = len(records)
		}
		if err := r.pushBatch(ctx, records[start:end]); err != nil {
			return fmt.Errorf("pushing records %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func (r *Reconciler[T]) pushBatch(ctx context.Context, records []T) error {
	ops := make([]remote.Op, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		m := rec.Meta()
		if m.RemoteID != "" {
			ops = append(ops, remote.Op{
				Type: localstore.OpUpdate, Collection: r.collection,
				DocID: m.RemoteID, LocalID: m.ID, Data: data, UpdatedAt: m.UpdatedAt,
			})
		} else {
			ops = append(ops, remote.Op{
				Type: localstore.OpAdd, Collection: r.collection,
				LocalID: m.ID, Data: data, UpdatedAt: m.UpdatedAt,
			})
		}
	}

	results, err := r.store.Batch(ctx, ops)
	if err != nil {
		return err
	}
	if len(results) != len(ops) {
		return fmt.Errorf("batch returned %d results for %d ops", len(results), len(ops))
	}

	for i, rec := range records {
		m := rec.Meta()
		if results[i].Created && m.RemoteID != "" {
			r.logger.Warn(ctx, "remote document was missing, re-created", "docId", m.RemoteID)
		}
		if m.RemoteID == "" {
			if results[i].DocID == "" {
				return fmt.Errorf("server assigned no id for new document (op %d)", i)
			}
			m.RemoteID = results[i].DocID
		}
		m.SyncStatus = models.StatusSynced
	}
	return nil
}

// cleanRemoteDuplicates re-reads the collection and deletes all but the
// most recently updated document per natural key.
func (r *Reconciler[T]) cleanRemoteDuplicates(ctx context.Context) error {
	docs, err := r.store.List(ctx, r.collection)
	if err != nil {
		return err
	}
	recs, err := decodeAll(docs, r.newT)
	if err != nil {
		return err
	}

	_, dups := SplitDuplicates(recs, r.key)
	if len(dups) == 0 {
		return nil
	}

	ops := make([]remote.Op, 0, len(dups))
	for _, d := range dups {
		r.logger.Warn(ctx, "deleting remote duplicate", "key", r.key(d), "docId", d.Meta().RemoteID)
		ops = append(ops, remote.Op{Type: localstore.OpDelete, Collection: r.collection, DocID: d.Meta().RemoteID})
	}
	for start := 0; start < len(ops); start += common.MaxBatchOps {
		end := start + common.MaxBatchOps
		if end > len(ops) {
			end = len(ops)
		}
		if _, err := r.store.Batch(ctx, ops[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// pullBack replaces the local table with the merged, identifier-complete
// set so reactive consumers re-read a consistent state.
func (r *Reconciler[T]) pullBack(ctx context.Context, merged []T) error {
	for _, rec := range merged {
		rec.Meta().SyncStatus = models.StatusSynced
	}
	if err := r.local.ReplaceAll(ctx, merged); err != nil {
		return fmt.Errorf("pull-back into local store: %w", err)
	}
	return nil
}

func unpushed[T Keyed](records []T) []T {
	var out []T
	for _, rec := range records {
		if rec.Meta().RemoteID == "" {
			out = append(out, rec)
		}
	}
	return out
}

// decodeAll unmarshals remote documents into domain records, attaching the
// remote identifier and back-reference carried on the document envelope.
func decodeAll[T Keyed](docs []remote.Document, newT func() T) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		rec := newT()
		if err := json.Unmarshal(doc.Data, rec); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		m := rec.Meta()
		m.RemoteID = doc.ID
		m.LocalID = doc.LocalID
		if m.UpdatedAt == 0 {
			m.UpdatedAt = doc.UpdatedAt
		}
		out = append(out, rec)
	}
	return out, nil
}
