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

// ContactRepository persists the address book.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, remote_id, sync_status, created_at, updated_at, name, email, phone, category_id`

func scanContact(row interface{ Scan(...any) error }) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.RemoteID, &c.SyncStatus, &c.CreatedAt, &c.UpdatedAt,
		&c.Name, &c.Email, &c.Phone, &c.CategoryID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) Insert(ctx context.Context, c *models.Contact) (int64, error) {
	remoteID, status, createdAt, updatedAt := metaArgs(&c.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (remote_id, sync_status, created_at, updated_at, name, email, phone, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		remoteID, status, createdAt, updatedAt, c.Name, c.Email, c.Phone, c.CategoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (r *ContactRepository) Update(ctx context.Context, c *models.Contact) error {
	remoteID, status, createdAt, updatedAt := metaArgs(&c.SyncMeta)
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET remote_id=?, sync_status=?, created_at=?, updated_at=?,
			name=?, email=?, phone=?, category_id=?
		WHERE id=?`,
		remoteID, status, createdAt, updatedAt, c.Name, c.Email, c.Phone, c.CategoryID, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return requireOneRow(res)
}

func (r *ContactRepository) GetByID(ctx context.Context, id int64) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id=?`, id)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return c, err
}

func (r *ContactRepository) GetAll(ctx context.Context) ([]*models.Contact, error) {
	return r.query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY id`)
}

func (r *ContactRepository) GetByCategory(ctx context.Context, categoryID string) ([]*models.Contact, error) {
	return r.query(ctx, `SELECT `+contactColumns+` FROM contacts WHERE category_id=? ORDER BY id`, categoryID)
}

func (r *ContactRepository) query(ctx context.Context, q string, args ...any) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select contacts: %w", err)
	}
	defer rows.Close()

	var result []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *ContactRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id=?`, id)
	return err
}

func (r *ContactRepository) BulkDelete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id IN (`+placeholders(len(ids))+`)`, idsToArgs(ids)...)
	return err
}

func (r *ContactRepository) ReplaceAll(ctx context.Context, contacts []*models.Contact) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM contacts`); err != nil {
			return err
		}
		for _, c := range contacts {
			remoteID, status, createdAt, updatedAt := metaArgs(&c.SyncMeta)
			res, err := tx.ExecContext(ctx, `
				INSERT INTO contacts (remote_id, sync_status, created_at, updated_at, name, email, phone, category_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				remoteID, status, createdAt, updatedAt, c.Name, c.Email, c.Phone, c.CategoryID)
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

func (r *ContactRepository) MarkSync(ctx context.Context, id int64, status models.SyncStatus, remoteID string) error {
	return markSync(ctx, r.db, "contacts", id, status, remoteID)
}

func (r *ContactRepository) CountPending(ctx context.Context) (int64, error) {
	return countPending(ctx, r.db, "contacts")
}
