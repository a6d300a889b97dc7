package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"metapanel/internal/config"
)

// Connect opens a pooled connection to the panel store
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL not configured")
	}

	db, err := sqlx.Connect("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to panel store: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// migrations are idempotent: every statement is IF NOT EXISTS, so Migrate is
// safe to run on every startup
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS governed_rows (
		id BIGSERIAL PRIMARY KEY,
		record_id TEXT NOT NULL,
		row_id TEXT NOT NULL,
		patch TEXT NOT NULL,
		entity_id TEXT,
		role TEXT,
		queue TEXT,
		aggregation_level TEXT NOT NULL,
		n INTEGER NOT NULL,
		effective_n DOUBLE PRECISION NOT NULL,
		uses_prior BOOLEAN NOT NULL,
		winrate DOUBLE PRECISION NOT NULL,
		ci_lo DOUBLE PRECISION NOT NULL,
		ci_hi DOUBLE PRECISION NOT NULL,
		pick_rate DOUBLE PRECISION NOT NULL,
		governance_tag TEXT NOT NULL,
		data_quality_score DOUBLE PRECISION NOT NULL,
		risk_level TEXT NOT NULL,
		compliant BOOLEAN NOT NULL,
		record JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_governed_rows_patch ON governed_rows (patch)`,
	`CREATE INDEX IF NOT EXISTS idx_governed_rows_entity ON governed_rows (entity_id, patch)`,

	`CREATE TABLE IF NOT EXISTS validation_reports (
		id BIGSERIAL PRIMARY KEY,
		patch TEXT NOT NULL,
		total INTEGER NOT NULL,
		compliant INTEGER NOT NULL,
		non_compliant INTEGER NOT NULL,
		pii_hits INTEGER NOT NULL,
		report JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS patch_comparisons (
		id BIGSERIAL PRIMARY KEY,
		patch_from TEXT NOT NULL,
		patch_to TEXT NOT NULL,
		meta_shift_score DOUBLE PRECISION NOT NULL,
		common_entities INTEGER NOT NULL,
		result JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patch_comparisons_pair ON patch_comparisons (patch_from, patch_to)`,

	`CREATE TABLE IF NOT EXISTS batch_manifests (
		id BIGSERIAL PRIMARY KEY,
		batch_id TEXT NOT NULL,
		manifest JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the panel-store schema
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
