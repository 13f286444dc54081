// Package documents is the PostgreSQL repository for the per-user document
// collections the clients sync against.
package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/dbx"
	"github.com/tallyhq/tally/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const docColumns = `id, user_id, collection, local_id, data, updated_at, server_updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(&d.ID, &d.UserID, &d.Collection, &d.LocalID, &d.Data, &d.UpdatedAt, &d.ServerUpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID, collection string) ([]*models.Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents
		 WHERE user_id = $1 AND collection = $2
		 ORDER BY server_updated_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepository) FindByLocalID(ctx context.Context, userID, collection string, localID int64) (*models.Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents
		 WHERE user_id = $1 AND collection = $2 AND local_id = $3
		 ORDER BY server_updated_at DESC
		 LIMIT 1`

	return scanDocument(r.db.QueryRowContext(ctx, query, userID, collection, localID))
}

func (r *PostgresRepository) Get(ctx context.Context, userID, docID string) (*models.Document, error) {
	query := `SELECT ` + docColumns + ` FROM documents
		 WHERE user_id = $1 AND id = $2`

	return scanDocument(r.db.QueryRowContext(ctx, query, userID, docID))
}

func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) (*models.Document, error) {
	query := `INSERT INTO documents (user_id, collection, local_id, data, updated_at, server_updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		doc.UserID, doc.Collection, doc.LocalID, doc.Data, doc.UpdatedAt, doc.ServerUpdatedAt).Scan(&doc.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc, nil
}

func (r *PostgresRepository) Update(ctx context.Context, userID, docID string, data json.RawMessage, updatedAt, serverUpdatedAt int64) error {
	query := `UPDATE documents
		 SET data = $1, updated_at = $2, server_updated_at = $3
		 WHERE user_id = $4 AND id = $5`

	res, err := r.db.ExecContext(ctx, query, data, updatedAt, serverUpdatedAt, userID, docID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, docID string) error {
	query := `DELETE FROM documents WHERE user_id = $1 AND id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, docID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
