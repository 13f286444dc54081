package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/dbx"
)

// TransactionRepository persists cash-flow entries.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, remote_id, sync_status, created_at, updated_at,
	type, amount_cents, date, payment_method, description, category_id`

func scanTransaction(row interface{ Scan(...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.RemoteID, &t.SyncStatus, &t.CreatedAt, &t.UpdatedAt,
		&t.Type, &t.AmountCents, &t.Date, &t.PaymentMethod, &t.Description, &t.CategoryID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) Insert(ctx context.Context, t *models.Transaction) (int64, error) {
	remoteID, status, createdAt, updatedAt := metaArgs(&t.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (remote_id, sync_status, created_at, updated_at,
			type, amount_cents, date, payment_method, description, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		remoteID, status, createdAt, updatedAt,
		t.Type, t.AmountCents, t.Date, t.PaymentMethod, t.Description, t.CategoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	t.ID = id
	return id, nil
}

func (r *TransactionRepository) Update(ctx context.Context, t *models.Transaction) error {
	remoteID, status, createdAt, updatedAt := metaArgs(&t.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET remote_id=?, sync_status=?, created_at=?, updated_at=?,
			type=?, amount_cents=?, date=?, payment_method=?, description=?, category_id=?
		WHERE id=?`,
		remoteID, status, createdAt, updatedAt,
		t.Type, t.AmountCents, t.Date, t.PaymentMethod, t.Description, t.CategoryID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireOneRow(res)
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id=?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return t, err
}

func (r *TransactionRepository) GetAll(ctx context.Context) ([]*models.Transaction, error) {
	return r.query(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY id`)
}

// GetByDate lists entries for one business day; DailyProfit is computed
// from this set.
func (r *TransactionRepository) GetByDate(ctx context.Context, date string) ([]*models.Transaction, error) {
	return r.query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE date=? ORDER BY id`, date)
}

// GetByDateRange lists entries over a span of business days, inclusive on
// both ends; period profit reports read from this set.
func (r *TransactionRepository) GetByDateRange(ctx context.Context, from, to string) ([]*models.Transaction, error) {
	return r.query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE date>=? AND date<=? ORDER BY id`, from, to)
}

func (r *TransactionRepository) query(ctx context.Context, q string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}
	defer rows.Close()

	var result []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id=?`, id)
	return err
}

func (r *TransactionRepository) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id IN (`+placeholders(len(ids))+`)`, idsToArgs(ids)...)
	return err
}

func (r *TransactionRepository) ReplaceAll(ctx context.Context, txns []*models.Transaction) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return err
		}
		for _, t := range txns {
			remoteID, status, createdAt, updatedAt := metaArgs(&t.SyncMeta)
			res, err := tx.ExecContext(ctx, `
				INSERT INTO transactions (remote_id, sync_status, created_at, updated_at,
					type, amount_cents, date, payment_method, description, category_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				remoteID, status, createdAt, updatedAt,
				t.Type, t.AmountCents, t.Date, t.PaymentMethod, t.Description, t.CategoryID)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			t.ID = id
		}
		return nil
	})
}

func (r *TransactionRepository) MarkSync(ctx context.Context, id int64, status models.SyncStatus, remoteID string) error {
	return markSync(ctx, r.db, "transactions", id, status, remoteID)
}

func (r *TransactionRepository) CountPending(ctx context.Context) (int64, error) {
	return countPending(ctx, r.db, "transactions")
}
