package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// psql is the shared builder; all repositories speak Postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS notices (
		id UUID PRIMARY KEY,
		source_type TEXT NOT NULL,
		sequence_label TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		date_text TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notices_source_created
		ON notices (source_type, created_at)`,
	`CREATE TABLE IF NOT EXISTS keywords (
		id BIGSERIAL PRIMARY KEY,
		phrase TEXT NOT NULL,
		scope TEXT NOT NULL,
		owner_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_keywords_scope ON keywords (scope)`,
	`CREATE INDEX IF NOT EXISTS idx_keywords_owner ON keywords (owner_id)`,
	`CREATE TABLE IF NOT EXISTS notice_keywords (
		notice_id UUID NOT NULL REFERENCES notices (id) ON DELETE CASCADE,
		keyword_id BIGINT NOT NULL REFERENCES keywords (id) ON DELETE CASCADE,
		PRIMARY KEY (notice_id, keyword_id)
	)`,
	`CREATE TABLE IF NOT EXISTS subscription_prefs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		source_type TEXT NOT NULL,
		mode TEXT NOT NULL,
		UNIQUE (user_id, source_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prefs_type_mode
		ON subscription_prefs (source_type, mode)`,
	`CREATE TABLE IF NOT EXISTS subscription_keyword_links (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		source_type TEXT NOT NULL,
		keyword_id BIGINT NOT NULL REFERENCES keywords (id),
		UNIQUE (user_id, source_type, keyword_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_type_keyword
		ON subscription_keyword_links (source_type, keyword_id)`,
}

// EnsureSchema creates the tables on startup when absent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
