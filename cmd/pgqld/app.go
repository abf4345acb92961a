package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/pgqlconfig"
)

// buildLogger constructs the process-wide structured logger every
// component is threaded with (SPEC_FULL.md §1.2).
func buildLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// openDB opens the shared, read-only database/sql handle the core holds
// per spec.md §3 ("a shared, read-only handle to the database driver"),
// using pgx's database/sql driver.
func openDB(cfg *pgqlconfig.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	return db, nil
}

// buildReflector wires a Catalog Reflector over db using cfg's cache TTL.
func buildReflector(db *sql.DB, cfg *pgqlconfig.Config, logger *zap.Logger) *catalog.Reflector {
	return catalog.New(catalog.DBAdapter{DB: db}, catalog.Options{
		TTL:    cfg.Cache.SchemaTTL,
		Logger: logger,
	})
}
