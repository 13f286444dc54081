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

// ProductRepository persists the stock list.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, remote_id, sync_status, created_at, updated_at, sku, name, category_id, price_cents, stock`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.RemoteID, &p.SyncStatus, &p.CreatedAt, &p.UpdatedAt,
		&p.SKU, &p.Name, &p.CategoryID, &p.PriceCents, &p.Stock)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) (int64, error) {
	remoteID, status, createdAt, updatedAt := metaArgs(&p.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO products (remote_id, sync_status, created_at, updated_at, sku, name, category_id, price_cents, stock)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		remoteID, status, createdAt, updatedAt, p.SKU, p.Name, p.CategoryID, p.PriceCents, p.Stock)
	if err != nil {
		return 0, fmt.Errorf("failed to insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	remoteID, status, createdAt, updatedAt := metaArgs(&p.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET remote_id=?, sync_status=?, created_at=?, updated_at=?,
			sku=?, name=?, category_id=?, price_cents=?, stock=?
		WHERE id=?`,
		remoteID, status, createdAt, updatedAt, p.SKU, p.Name, p.CategoryID, p.PriceCents, p.Stock, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireOneRow(res)
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id=?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return p, err
}

func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE sku=?`, sku)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return p, err
}

func (r *ProductRepository) GetAll(ctx context.Context) ([]*models.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

// GetLowStock lists products at or below the given threshold.
func (r *ProductRepository) GetLowStock(ctx context.Context, threshold int64) ([]*models.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE stock<=? ORDER BY stock, id`, threshold)
}

func (r *ProductRepository) query(ctx context.Context, q string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select products: %w", err)
	}
	defer rows.Close()

	var result []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	return err
}

func (r *ProductRepository) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id IN (`+placeholders(len(ids))+`)`, idsToArgs(ids)...)
	return err
}

func (r *ProductRepository) ReplaceAll(ctx context.Context, products []*models.Product) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
			return err
		}
		for _, p := range products {
			remoteID, status, createdAt, updatedAt := metaArgs(&p.SyncMeta)
			res, err := tx.ExecContext(ctx, `
				INSERT INTO products (remote_id, sync_status, created_at, updated_at, sku, name, category_id, price_cents, stock)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				remoteID, status, createdAt, updatedAt, p.SKU, p.Name, p.CategoryID, p.PriceCents, p.Stock)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			p.ID = id
		}
		return nil
	})
}

func (r *ProductRepository) MarkSync(ctx context.Context, id int64, status models.SyncStatus, remoteID string) error {
	return markSync(ctx, r.db, "products", id, status, remoteID)
}

func (r *ProductRepository) CountPending(ctx context.Context) (int64, error) {
	return countPending(ctx, r.db, "products")
}
