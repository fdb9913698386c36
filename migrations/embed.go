// Package migrations embeds the SQL migration files so they can be applied
// through the goose provider API by the server, ritctl and integration tests.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"
)

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS

// Open opens a database/sql handle on dsn through the pgx driver, which is
// what goose needs.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("migrations.Open: %w", err)
	}
	return db, nil
}

// NewProvider returns a goose provider for the embedded migrations.
func NewProvider(db *sql.DB) (*goose.Provider, error) {
	return goose.NewProvider(goose.DialectPostgres, db, FS)
}

// Up applies all pending migrations to the database at dsn and returns the
// number applied.
func Up(ctx context.Context, dsn string) (int, error) {
	db, err := Open(dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	provider, err := NewProvider(db)
	if err != nil {
		return 0, fmt.Errorf("migrations.Up: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations.Up: %w", err)
	}
	return len(results), nil
}
