package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/common"
)

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idsToArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// metaArgs orders the shared sync-metadata columns for inserts/updates.
func metaArgs(m *models.SyncMeta) (remoteID string, status string, createdAt, updatedAt int64) {
	return m.RemoteID, string(m.SyncStatus), m.CreatedAt, m.UpdatedAt
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// markSync updates the sync outcome columns for one row. The table name is
// always one of our fixed table constants, never user input.
func markSync(ctx context.Context, db *sql.DB, table string, id int64, status models.SyncStatus, remoteID string) error {
	q := `UPDATE ` + table + ` SET sync_status=?`
	args := []any{string(status)}
	if remoteID != "" {
		q += `, remote_id=?`
		args = append(args, remoteID)
	}
	q += ` WHERE id=?`
	args = append(args, id)

	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to mark sync state: %w", err)
	}
	return requireOneRow(res)
}

func countPending(ctx context.Context, db *sql.DB, table string) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE sync_status=?`, string(models.StatusPending)).Scan(&n)
	return n, err
}
