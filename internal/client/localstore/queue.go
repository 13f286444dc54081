package localstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Operation types accepted by the sync queue.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Operation is one durable pending mutation destined for the remote store.
// Payload holds the marshalled record for add/update; DocID targets an
// existing remote document for update/delete; RecordID ties the operation
// back to the local row whose sync status it should settle.
type Operation struct {
	ID         int64
	Type       string
	Collection string
	DocID      string
	RecordID   int64
	Payload    []byte
	Retries    int
	CreatedAt  int64
}

// QueueRepository persists pending operations so they survive restarts.
type QueueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// Enqueue appends an operation; it never blocks on the network.
func (r *QueueRepository) Enqueue(ctx context.Context, op *Operation) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (op_type, collection, doc_id, record_id, payload, retries, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		op.Type, op.Collection, op.DocID, op.RecordID, op.Payload, op.Retries, op.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	op.ID = id
	return id, nil
}

// List returns all pending operations in insertion order.
func (r *QueueRepository) List(ctx context.Context) ([]*Operation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, op_type, collection, doc_id, record_id, payload, retries, created_at
		FROM sync_queue ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue: %w", err)
	}
	defer rows.Close()

	var result []*Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.Type, &op.Collection, &op.DocID, &op.RecordID,
			&op.Payload, &op.Retries, &op.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &op)
	}
	return result, rows.Err()
}

func (r *QueueRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id=?`, id)
	return err
}

// DeleteByRecord removes queued add/update operations tied to a local row
// and returns their ids. Called when the row is deleted before its pending
// writes ever reached the remote store; replaying them would re-create a
// record the user removed.
func (r *QueueRepository) DeleteByRecord(ctx context.Context, collection string, recordID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM sync_queue
		WHERE collection=? AND record_id=? AND op_type IN (?, ?)`,
		collection, recordID, OpAdd, OpUpdate)
	if err != nil {
		return nil, fmt.Errorf("failed to select operations for record: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_queue
		WHERE collection=? AND record_id=? AND op_type IN (?, ?)`,
		collection, recordID, OpAdd, OpUpdate); err != nil {
		return nil, fmt.Errorf("failed to delete operations for record: %w", err)
	}
	return ids, nil
}

// IncrementRetries bumps the persisted retry counter and returns the new value.
func (r *QueueRepository) IncrementRetries(ctx context.Context, id int64) (int, error) {
	if _, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET retries=retries+1 WHERE id=?`, id); err != nil {
		return 0, fmt.Errorf("failed to increment retries: %w", err)
	}
	var retries int
	err := r.db.QueryRowContext(ctx, `SELECT retries FROM sync_queue WHERE id=?`, id).Scan(&retries)
	return retries, err
}

func (r *QueueRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n)
	return n, err
}
