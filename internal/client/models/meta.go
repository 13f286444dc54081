// Package models defines the record types kept in the local store and
// synchronized with the remote document store, together with their
// validation rules and natural keys.
package models

import "time"

// SyncStatus tracks where a record stands relative to the remote store.
type SyncStatus string

const (
	StatusPending          SyncStatus = "pending"
	StatusSynced           SyncStatus = "synced"
	StatusError            SyncStatus = "error"
	StatusValidationFailed SyncStatus = "validation_failed"
)

// SyncMeta is embedded in every synchronized record.
//
// ID is assigned by the local store and is meaningful only locally.
// RemoteID is assigned by the remote document store on first push; a record
// without one has never been pushed. LocalID is the back-reference stored on
// a remote-origin copy, pointing at the local row it was reconciled from, so
// a pull never inserts a second local copy of the same record.
type SyncMeta struct {
	ID         int64      `json:"-"`
	RemoteID   string     `json:"remoteId,omitempty"`
	LocalID    int64      `json:"localId,omitempty"`
	SyncStatus SyncStatus `json:"-"`
	CreatedAt  int64      `json:"createdAt"`
	UpdatedAt  int64      `json:"updatedAt"`
}

// Meta exposes the embedded metadata through the Record interface.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// Touch stamps the record with client time in unix milliseconds and marks
// it pending. Conflict resolution compares these wall-clock stamps, which
// is a known limitation under client/server clock skew.
func (m *SyncMeta) Touch(now time.Time) {
	ms := now.UnixMilli()
	if m.CreatedAt == 0 {
		m.CreatedAt = ms
	}
	m.UpdatedAt = ms
	m.SyncStatus = StatusPending
}

// Record is any entity carrying sync metadata.
type Record interface {
	Meta() *SyncMeta
}
