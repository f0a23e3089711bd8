// internal/common/database/migrations.go
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements creates the catalog tables. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS attributes (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		type                TEXT NOT NULL CHECK (type IN ('SHORT_TEXT','LONG_TEXT','RICH_TEXT','NUMBER','SINGLE_SELECT','MULTIPLE_SELECT','MEASURE')),
		unit                TEXT,
		options             TEXT[] NOT NULL DEFAULT '{}',
		is_required         BOOLEAN NOT NULL DEFAULT FALSE,
		is_system_generated BOOLEAN NOT NULL DEFAULT FALSE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT attributes_name_key UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		brand       TEXT NOT NULL,
		barcode     TEXT,
		images      TEXT[] NOT NULL DEFAULT '{}',
		attributes  JSONB NOT NULL DEFAULT '{}'::jsonb,
		ai_enriched BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS enrichment_jobs (
		id          BIGSERIAL PRIMARY KEY,
		product_ids BIGINT[] NOT NULL,
		status      TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN ('PENDING','PROCESSING','COMPLETED','FAILED')),
		progress    DOUBLE PRECISION NOT NULL DEFAULT 0,
		result      JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS enrichment_jobs_status_updated_idx ON enrichment_jobs (status, updated_at)`,
}

// Migrate applies the schema in a single transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
