package repomanager

import (
	"context"
	"database/sql"

	"github.com/tallyhq/tally/internal/dbx"
	"github.com/tallyhq/tally/internal/server/repositories/documents"
	"github.com/tallyhq/tally/internal/server/repositories/refreshtokens"
	"github.com/tallyhq/tally/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Documents(db dbx.DBTX) documents.Repository
}
