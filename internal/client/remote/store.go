// Package remote speaks to the remote document store. The Store interface
// is what the sync engine programs against; the HTTP client below it is the
// production implementation, and tests substitute an in-memory fake.
package remote

import (
	"context"
	"encoding/json"
	"time"
)

// Document is one remote record copy.
//
// LocalID is the back-reference to the client row the document was first
// pushed from; the queue uses it to keep add operations idempotent.
// ServerUpdatedAt is stamped by the server on every write and is
// informational only; conflict resolution compares the client UpdatedAt.
type Document struct {
	ID              string          `json:"id"`
	Collection      string          `json:"collection"`
	LocalID         int64           `json:"localId,omitempty"`
	Data            json.RawMessage `json:"data"`
	UpdatedAt       int64           `json:"updatedAt"`
	ServerUpdatedAt int64           `json:"serverUpdatedAt,omitempty"`
}

// Op is one entry of a batched write.
type Op struct {
	Type       string          `json:"type"` // add | update | delete
	Collection string          `json:"collection"`
	DocID      string          `json:"docId,omitempty"`
	LocalID    int64           `json:"localId,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	UpdatedAt  int64           `json:"updatedAt,omitempty"`
}

// OpResult reports the outcome of one batch entry. DocID is populated for
// add operations with the server-assigned identifier. Created flags an
// update that found its target document missing and re-created it.
type OpResult struct {
	DocID   string `json:"docId,omitempty"`
	Created bool   `json:"created,omitempty"`
}

// Store is the remote side of the sync engine.
type Store interface {
	// Ping reports server reachability; the online watcher polls it.
	Ping(ctx context.Context) error

	// ServerTime returns the server clock, used for skew diagnostics.
	ServerTime(ctx context.Context) (time.Time, error)

	// List returns every document in a collection.
	List(ctx context.Context, collection string) ([]Document, error)

	// FindByLocalID looks a document up by its client back-reference.
	// Returns common.ErrNotFound when absent.
	FindByLocalID(ctx context.Context, collection string, localID int64) (*Document, error)

	// Create stores a new document and returns its assigned identifier.
	Create(ctx context.Context, collection string, localID int64, data json.RawMessage, updatedAt int64) (string, error)

	// Update overwrites an existing document. Returns common.ErrNotFound
	// if the document is gone; the caller decides whether to re-create.
	Update(ctx context.Context, collection, docID string, data json.RawMessage, updatedAt int64) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, docID string) error

	// Batch applies up to common.MaxBatchOps operations atomically.
	Batch(ctx context.Context, ops []Op) ([]OpResult, error)
}
