// Package postgres provides the PostgreSQL-backed implementation of
// [mission.Store].
//
// All operations share a single [pgxpool.Pool]. Lyric lines are stored as
// ordered rows keyed by (mission_id, idx) and always rewritten as a whole
// set — matching the core's "lines are replaced as one array" contract — so
// a producer commit is a delete-and-insert inside one transaction.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlMissions = `
CREATE TABLE IF NOT EXISTS missions (
    id          TEXT             PRIMARY KEY,
    title       TEXT             NOT NULL,
    artist      TEXT             NOT NULL DEFAULT '',
    media_ref   TEXT             NOT NULL DEFAULT '',
    sync_offset DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at  TIMESTAMPTZ      NOT NULL DEFAULT now()
);
`

const ddlMissionLines = `
CREATE TABLE IF NOT EXISTS mission_lines (
    mission_id TEXT    NOT NULL REFERENCES missions (id) ON DELETE CASCADE,
    idx        INTEGER NOT NULL,
    stamp      TEXT    NOT NULL DEFAULT '',
    content    TEXT    NOT NULL,
    PRIMARY KEY (mission_id, idx)
);
`

const ddlMissionKeywords = `
CREATE TABLE IF NOT EXISTS mission_keywords (
    mission_id TEXT    NOT NULL REFERENCES missions (id) ON DELETE CASCADE,
    idx        INTEGER NOT NULL,
    word       TEXT    NOT NULL,
    definition TEXT    NOT NULL DEFAULT '',
    phonetic   TEXT    NOT NULL DEFAULT '',
    example    TEXT    NOT NULL DEFAULT '',
    translated TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (mission_id, idx)
);
`

const ddlLearnerProgress = `
CREATE TABLE IF NOT EXISTS learner_progress (
    learner_id TEXT    PRIMARY KEY,
    xp         INTEGER NOT NULL DEFAULT 0,
    tickets    INTEGER NOT NULL DEFAULT 0,
    cards      TEXT[]  NOT NULL DEFAULT '{}'
);
`

// Migrate creates all required tables. It is idempotent and safe to run on
// every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, ddl := range []string{ddlMissions, ddlMissionLines, ddlMissionKeywords, ddlLearnerProgress} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
