package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/dbx"
	"github.com/tallyhq/tally/internal/server/models"
	"github.com/tallyhq/tally/internal/server/repositories/repomanager"
)

// BatchOp is one entry of a batched write request.
type BatchOp struct {
	Type       string          `json:"type"` // add | update | delete
	Collection string          `json:"collection"`
	DocID      string          `json:"docId,omitempty"`
	LocalID    int64           `json:"localId,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	UpdatedAt  int64           `json:"updatedAt,omitempty"`
}

// BatchOpResult reports the outcome of one batch entry. DocID carries the
// assigned identifier for adds; Created flags an update whose target was
// missing and had to be re-created.
type BatchOpResult struct {
	DocID   string `json:"docId,omitempty"`
	Created bool   `json:"created,omitempty"`
}

// DocumentService implements the per-user document collections the clients
// sync against. All operations are scoped to the authenticated user.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager) *DocumentService {
	return &DocumentService{db: db, repomanager: m, now: time.Now}
}

func (s *DocumentService) List(ctx context.Context, userID, collection string) ([]*models.Document, error) {
	return s.repomanager.Documents(s.db).List(ctx, userID, collection)
}

func (s *DocumentService) FindByLocalID(ctx context.Context, userID, collection string, localID int64) (*models.Document, error) {
	return s.repomanager.Documents(s.db).FindByLocalID(ctx, userID, collection, localID)
}

func (s *DocumentService) Create(ctx context.Context, userID, collection string, localID int64, data json.RawMessage, updatedAt int64) (*models.Document, error) {
	doc := &models.Document{
		UserID:          userID,
		Collection:      collection,
		LocalID:         localID,
		Data:            data,
		UpdatedAt:       updatedAt,
		ServerUpdatedAt: s.now().UnixMilli(),
	}
	return s.repomanager.Documents(s.db).Create(ctx, doc)
}

func (s *DocumentService) Update(ctx context.Context, userID, docID string, data json.RawMessage, updatedAt int64) error {
	return s.repomanager.Documents(s.db).Update(ctx, userID, docID, data, updatedAt, s.now().UnixMilli())
}

func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	return s.repomanager.Documents(s.db).Delete(ctx, userID, docID)
}

// Batch applies up to common.MaxBatchOps operations in one transaction.
// An update whose target document no longer exists is re-created rather
// than failed, so a client pushing against a cleaned-up store converges
// instead of erroring; the result flags it so the client can log it.
func (s *DocumentService) Batch(ctx context.Context, userID string, ops []BatchOp) ([]BatchOpResult, error) {
	if len(ops) > common.MaxBatchOps {
		return nil, fmt.Errorf("%w: %d operations, limit %d", common.ErrBatchTooLarge, len(ops), common.MaxBatchOps)
	}

	results := make([]BatchOpResult, len(ops))
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)
		stamp := s.now().UnixMilli()

		for i, op := range ops {
			switch op.Type {
			case "add":
				doc := &models.Document{
					UserID:          userID,
					Collection:      op.Collection,
					LocalID:         op.LocalID,
					Data:            op.Data,
					UpdatedAt:       op.UpdatedAt,
					ServerUpdatedAt: stamp,
				}
				created, err := repo.Create(ctx, doc)
				if err != nil {
					return err
				}
				results[i] = BatchOpResult{DocID: created.ID}

			case "update":
				err := repo.Update(ctx, userID, op.DocID, op.Data, op.UpdatedAt, stamp)
				if errors.Is(err, common.ErrNotFound) {
					doc := &models.Document{
						UserID:          userID,
						Collection:      op.Collection,
						LocalID:         op.LocalID,
						Data:            op.Data,
						UpdatedAt:       op.UpdatedAt,
						ServerUpdatedAt: stamp,
					}
					created, cerr := repo.Create(ctx, doc)
					if cerr != nil {
						return cerr
					}
					results[i] = BatchOpResult{DocID: created.ID, Created: true}
					continue
				}
				if err != nil {
					return err
				}
				results[i] = BatchOpResult{DocID: op.DocID}

			case "delete":
				if err := repo.Delete(ctx, userID, op.DocID); err != nil {
					return err
				}
				results[i] = BatchOpResult{DocID: op.DocID}

			default:
				return fmt.Errorf("%w: unknown batch op type %q", common.ErrValidation, op.Type)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
