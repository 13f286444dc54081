// Package sync implements the reconciliation engine: it merges the local
// and remote record sets for one domain, resolves conflicts by timestamp,
// collapses duplicates, pushes the result and pulls it back into the local
// store.
package sync

import "sync"

// SyncState is the observable status of one domain's reconciliation.
type SyncState struct {
	LastSync       int64 // unix milliseconds of the last successful run
	PendingChanges int64
	InProgress     bool
	Error          string
}

// stateBox guards a SyncState for concurrent readers.
type stateBox struct {
	mu    sync.Mutex
	state SyncState
}

func (b *stateBox) snapshot() SyncState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *stateBox) update(fn func(*SyncState)) {
	b.mu.Lock()
	fn(&b.state)
	b.mu.Unlock()
}
