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

// SaleRepository persists receipt lines.
type SaleRepository struct {
	db *sql.DB
}

func NewSaleRepository(db *sql.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

const saleColumns = `id, remote_id, sync_status, created_at, updated_at,
	receipt_no, product_name, product_sku, quantity, unit_cents, total_cents, payment_method, date, receipt_key`

func scanSale(row interface{ Scan(...any) error }) (*models.Sale, error) {
	var s models.Sale
	err := row.Scan(&s.ID, &s.RemoteID, &s.SyncStatus, &s.CreatedAt, &s.UpdatedAt,
		&s.ReceiptNo, &s.ProductName, &s.ProductSKU, &s.Quantity, &s.UnitCents, &s.TotalCents,
		&s.PaymentMethod, &s.Date, &s.ReceiptKey)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Insert adds a sale and assigns its local id.
func (r *SaleRepository) Insert(ctx context.Context, s *models.Sale) (int64, error) {
	remoteID, status, createdAt, updatedAt := metaArgs(&s.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sales (remote_id, sync_status, created_at, updated_at,
			receipt_no, product_name, product_sku, quantity, unit_cents, total_cents, payment_method, date, receipt_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		remoteID, status, createdAt, updatedAt,
		s.ReceiptNo, s.ProductName, s.ProductSKU, s.Quantity, s.UnitCents, s.TotalCents, s.PaymentMethod, s.Date, s.ReceiptKey)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sale: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.ID = id
	return id, nil
}

func (r *SaleRepository) Update(ctx context.Context, s *models.Sale) error {
	remoteID, status, createdAt, updatedAt := metaArgs(&s.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		UPDATE sales SET remote_id=?, sync_status=?, created_at=?, updated_at=?,
			receipt_no=?, product_name=?, product_sku=?, quantity=?, unit_cents=?, total_cents=?,
			payment_method=?, date=?, receipt_key=?
		WHERE id=?`,
		remoteID, status, createdAt, updatedAt,
		s.ReceiptNo, s.ProductName, s.ProductSKU, s.Quantity, s.UnitCents, s.TotalCents,
		s.PaymentMethod, s.Date, s.ReceiptKey, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update sale: %w", err)
	}
	return requireOneRow(res)
}

func (r *SaleRepository) GetByID(ctx context.Context, id int64) (*models.Sale, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=?`, id)
	s, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return s, err
}

func (r *SaleRepository) GetAll(ctx context.Context) ([]*models.Sale, error) {
	return r.query(ctx, `SELECT `+saleColumns+` FROM sales ORDER BY id`)
}

// GetByDate lists receipt lines for one business day.
func (r *SaleRepository) GetByDate(ctx context.Context, date string) ([]*models.Sale, error) {
	return r.query(ctx, `SELECT `+saleColumns+` FROM sales WHERE date=? ORDER BY id`, date)
}

func (r *SaleRepository) query(ctx context.Context, q string, args ...any) ([]*models.Sale, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select sales: %w", err)
	}
	defer rows.Close()

	var result []*models.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *SaleRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id=?`, id)
	return err
}

func (r *SaleRepository) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id IN (`+placeholders(len(ids))+`)`, idsToArgs(ids)...)
	return err
}

// ReplaceAll clears the table and bulk-inserts the given records in one
// transaction. Used by the reconciliation pull-back.
func (r *SaleRepository) ReplaceAll(ctx context.Context, sales []*models.Sale) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sales`); err != nil {
			return err
		}
		for _, s := range sales {
			remoteID, status, createdAt, updatedAt := metaArgs(&s.SyncMeta)
			res, err := tx.ExecContext(ctx, `
				INSERT INTO sales (remote_id, sync_status, created_at, updated_at,
					receipt_no, product_name, product_sku, quantity, unit_cents, total_cents, payment_method, date, receipt_key)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				remoteID, status, createdAt, updatedAt,
				s.ReceiptNo, s.ProductName, s.ProductSKU, s.Quantity, s.UnitCents, s.TotalCents, s.PaymentMethod, s.Date, s.ReceiptKey)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			s.ID = id
		}
		return nil
	})
}

// MarkSync records the outcome of a push attempt for one row.
func (r *SaleRepository) MarkSync(ctx context.Context, id int64, status models.SyncStatus, remoteID string) error {
	return markSync(ctx, r.db, "sales", id, status, remoteID)
}

func (r *SaleRepository) CountPending(ctx context.Context) (int64, error) {
	return countPending(ctx, r.db, "sales")
}
