package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash BYTEA NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS uploads (
	id                    TEXT PRIMARY KEY,
	user_id               TEXT NOT NULL REFERENCES users(id),
	image_data            TEXT NOT NULL,
	image_path            TEXT,
	image_original_name   TEXT NOT NULL,
	image_size            BIGINT,
	image_mime_type       TEXT,
	prediction_cell_type  TEXT NOT NULL,
	prediction_confidence DOUBLE PRECISION NOT NULL,
	prediction_model      TEXT NOT NULL,
	processing_time_ms    BIGINT,
	status                TEXT NOT NULL DEFAULT 'completed',
	meta_width            INTEGER,
	meta_height           INTEGER,
	meta_format           TEXT,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_uploads_user_created ON uploads (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_uploads_cell_type ON uploads (prediction_cell_type);
`

// Migrate applies the schema. All statements are idempotent, so this runs
// unconditionally at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
