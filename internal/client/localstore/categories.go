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

// CategoryRepository persists category buckets.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, remote_id, sync_status, created_at, updated_at, name, scope`

func scanCategory(row interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.RemoteID, &c.SyncStatus, &c.CreatedAt, &c.UpdatedAt, &c.Name, &c.Scope)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) Insert(ctx context.Context, c *models.Category) (int64, error) {
	remoteID, status, createdAt, updatedAt := metaArgs(&c.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (remote_id, sync_status, created_at, updated_at, name, scope)
		VALUES (?, ?, ?, ?, ?, ?)`,
		remoteID, status, createdAt, updatedAt, c.Name, c.Scope)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	remoteID, status, createdAt, updatedAt := metaArgs(&c.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET remote_id=?, sync_status=?, created_at=?, updated_at=?, name=?, scope=?
		WHERE id=?`,
		remoteID, status, createdAt, updatedAt, c.Name, c.Scope, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireOneRow(res)
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return c, err
}

// GetByKey resolves a category by its natural key parts. Other records
// reference categories by this key so the reference survives syncing
// across devices that assign different identifiers.
func (r *CategoryRepository) GetByKey(ctx context.Context, scope models.CategoryScope, name string) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE scope=? AND LOWER(name)=LOWER(?)`, string(scope), name)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return c, err
}

// GetByRemoteID resolves a category reference carried on other records.
func (r *CategoryRepository) GetByRemoteID(ctx context.Context, remoteID string) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE remote_id=?`, remoteID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return c, err
}

func (r *CategoryRepository) GetAll(ctx context.Context) ([]*models.Category, error) {
	return r.query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
}

func (r *CategoryRepository) GetByScope(ctx context.Context, scope models.CategoryScope) ([]*models.Category, error) {
	return r.query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE scope=? ORDER BY id`, string(scope))
}

func (r *CategoryRepository) query(ctx context.Context, q string, args ...any) ([]*models.Category, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select categories: %w", err)
	}
	defer rows.Close()

	var result []*models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id=?`, id)
	return err
}

func (r *CategoryRepository) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id IN (`+placeholders(len(ids))+`)`, idsToArgs(ids)...)
	return err
}

func (r *CategoryRepository) ReplaceAll(ctx context.Context, categories []*models.Category) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories`); err != nil {
			return err
		}
		for _, c := range categories {
			remoteID, status, createdAt, updatedAt := metaArgs(&c.SyncMeta)
			res, err := tx.ExecContext(ctx, `
				INSERT INTO categories (remote_id, sync_status, created_at, updated_at, name, scope)
				VALUES (?, ?, ?, ?, ?, ?)`,
				remoteID, status, createdAt, updatedAt, c.Name, c.Scope)
			if err != nil {
				return err
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			c.ID = id
		}
		return nil
	})
}

func (r *CategoryRepository) MarkSync(ctx context.Context, id int64, status models.SyncStatus, remoteID string) error {
	return markSync(ctx, r.db, "categories", id, status, remoteID)
}

func (r *CategoryRepository) CountPending(ctx context.Context) (int64, error) {
	return countPending(ctx, r.db, "categories")
}
