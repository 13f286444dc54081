package documents

import (
	"context"
	"encoding/json"

	"github.com/tallyhq/tally/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, userID, collection string) ([]*models.Document, error)
	FindByLocalID(ctx context.Context, userID, collection string, localID int64) (*models.Document, error)
	Get(ctx context.Context, userID, docID string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) (*models.Document, error)
	Update(ctx context.Context, userID, docID string, data json.RawMessage, updatedAt, serverUpdatedAt int64) error
	Delete(ctx context.Context, userID, docID string) error
}
