// Package localstore is the embedded record store: one sqlite database that
// holds every domain table plus the sync queue. It is the single source of
// truth for client state; all mutation paths funnel through it.
package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/tallyhq/tally/internal/client/localstore/migrations"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	DB           *sql.DB
	Sales        *SaleRepository
	Transactions *TransactionRepository
	Contacts     *ContactRepository
	Categories   *CategoryRepository
	Products     *ProductRepository
	Queue        *QueueRepository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the sqlite database at dsn, applies migrations and
// returns the repository set bound to it.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	return &Repositories{
		DB:           db,
		Sales:        NewSaleRepository(db),
		Transactions: NewTransactionRepository(db),
		Contacts:     NewContactRepository(db),
		Categories:   NewCategoryRepository(db),
		Products:     NewProductRepository(db),
		Queue:        NewQueueRepository(db),
	}, nil
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}
