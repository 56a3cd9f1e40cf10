package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/perysek/sorting-management/internal/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// OpenLocal opens the local report store and verifies it answers.
func OpenLocal(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, dialect, err
	}

	db, err := sql.Open(cfg.Driver, cfg.GetDSN())
	if err != nil {
		return nil, dialect, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dialect, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, dialect, nil
}

// OpenReference opens a handle to the external reference store. The handle
// keeps no idle connections: every acquisition dials a fresh connection and
// every release closes it. No ping is issued here since the store is allowed
// to be down when the process starts.
func OpenReference(cfg *config.ReferenceConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference store: %w", err)
	}
	db.SetMaxIdleConns(0)
	return db, nil
}

// Close closes db when it is not nil.
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
