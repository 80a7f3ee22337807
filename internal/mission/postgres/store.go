package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hanbyeol/lyrico/internal/mission"
	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

// Compile-time assertion that Store satisfies the mission store interface.
var _ mission.Store = (*Store)(nil)

// Store is the PostgreSQL-backed mission store. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection, and
// runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping probes the database. Used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetMission implements [mission.Store.GetMission].
func (s *Store) GetMission(ctx context.Context, id string) (*lyrics.Mission, error) {
	m := &lyrics.Mission{ID: id}
	err := s.pool.QueryRow(ctx,
		`SELECT title, artist, media_ref, sync_offset FROM missions WHERE id = $1`, id,
	).Scan(&m.Title, &m.Artist, &m.MediaRef, &m.Offset)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, mission.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres store: get mission %q: %w", id, err)
	}

	if m.Lines, err = s.loadLines(ctx, id); err != nil {
		return nil, err
	}
	if m.Keywords, err = s.loadKeywords(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMissions implements [mission.Store.ListMissions]. Lines and keywords
// are loaded per mission; mission counts are small enough that the N+1 fetch
// is not worth a join.
func (s *Store) ListMissions(ctx context.Context) ([]lyrics.Mission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, artist, media_ref, sync_offset FROM missions ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list missions: %w", err)
	}
	defer rows.Close()

	var out []lyrics.Mission
	for rows.Next() {
		var m lyrics.Mission
		if err := rows.Scan(&m.ID, &m.Title, &m.Artist, &m.MediaRef, &m.Offset); err != nil {
			return nil, fmt.Errorf("postgres store: scan mission: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres store: list missions: %w", err)
	}

	for i := range out {
		if out[i].Lines, err = s.loadLines(ctx, out[i].ID); err != nil {
			return nil, err
		}
		if out[i].Keywords, err = s.loadKeywords(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// PutMission implements [mission.Store.PutMission]. The mission row, its
// lines, and its keywords are replaced atomically.
func (s *Store) PutMission(ctx context.Context, m *lyrics.Mission) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO missions (id, title, artist, media_ref, sync_offset, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				artist = EXCLUDED.artist,
				media_ref = EXCLUDED.media_ref,
				sync_offset = EXCLUDED.sync_offset,
				updated_at = now()`,
			m.ID, m.Title, m.Artist, m.MediaRef, m.Offset)
		if err != nil {
			return fmt.Errorf("postgres store: upsert mission %q: %w", m.ID, err)
		}

		if err := replaceLines(ctx, tx, m.ID, m.Lines); err != nil {
			return err
		}
		return replaceKeywords(ctx, tx, m.ID, m.Keywords)
	})
}

// UpdateLines implements [mission.Store.UpdateLines].
func (s *Store) UpdateLines(ctx context.Context, id string, lines []lyrics.Line) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE missions SET updated_at = now() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("postgres store: touch mission %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return mission.ErrNotFound
		}
		return replaceLines(ctx, tx, id, lines)
	})
}

// UpdateOffset implements [mission.Store.UpdateOffset].
func (s *Store) UpdateOffset(ctx context.Context, id string, offset float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE missions SET sync_offset = $2, updated_at = now() WHERE id = $1`, id, offset)
	if err != nil {
		return fmt.Errorf("postgres store: update offset for %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return mission.ErrNotFound
	}
	return nil
}

// GetProgress implements [mission.Store.GetProgress].
func (s *Store) GetProgress(ctx context.Context, learnerID string) (mission.Progress, error) {
	p := mission.Progress{LearnerID: learnerID}
	err := s.pool.QueryRow(ctx,
		`SELECT xp, tickets, cards FROM learner_progress WHERE learner_id = $1`, learnerID,
	).Scan(&p.XP, &p.Tickets, &p.Cards)
	if errors.Is(err, pgx.ErrNoRows) {
		return mission.Progress{}, mission.ErrNotFound
	}
	if err != nil {
		return mission.Progress{}, fmt.Errorf("postgres store: get progress for %q: %w", learnerID, err)
	}
	return p, nil
}

// PutProgress implements [mission.Store.PutProgress].
func (s *Store) PutProgress(ctx context.Context, p mission.Progress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO learner_progress (learner_id, xp, tickets, cards)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (learner_id) DO UPDATE SET
			xp = EXCLUDED.xp,
			tickets = EXCLUDED.tickets,
			cards = EXCLUDED.cards`,
		p.LearnerID, p.XP, p.Tickets, p.Cards)
	if err != nil {
		return fmt.Errorf("postgres store: put progress for %q: %w", p.LearnerID, err)
	}
	return nil
}

// inTx runs fn inside a transaction, committing on nil and rolling back on
// error.
func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit tx: %w", err)
	}
	return nil
}

// loadLines fetches a mission's lyric lines in playback order.
func (s *Store) loadLines(ctx context.Context, id string) ([]lyrics.Line, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stamp, content FROM mission_lines WHERE mission_id = $1 ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load lines for %q: %w", id, err)
	}
	defer rows.Close()

	var out []lyrics.Line
	for rows.Next() {
		var l lyrics.Line
		if err := rows.Scan(&l.Timestamp, &l.Content); err != nil {
			return nil, fmt.Errorf("postgres store: scan line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// loadKeywords fetches a mission's keyword set in stored order.
func (s *Store) loadKeywords(ctx context.Context, id string) ([]lyrics.Keyword, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT word, definition, phonetic, example, translated
		 FROM mission_keywords WHERE mission_id = $1 ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load keywords for %q: %w", id, err)
	}
	defer rows.Close()

	var out []lyrics.Keyword
	for rows.Next() {
		var k lyrics.Keyword
		if err := rows.Scan(&k.Word, &k.Definition, &k.Phonetic, &k.Example, &k.Translated); err != nil {
			return nil, fmt.Errorf("postgres store: scan keyword: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// replaceLines rewrites a mission's whole line set inside tx.
func replaceLines(ctx context.Context, tx pgx.Tx, id string, lines []lyrics.Line) error {
	if _, err := tx.Exec(ctx, `DELETE FROM mission_lines WHERE mission_id = $1`, id); err != nil {
		return fmt.Errorf("postgres store: clear lines for %q: %w", id, err)
	}
	for i, l := range lines {
		if _, err := tx.Exec(ctx,
			`INSERT INTO mission_lines (mission_id, idx, stamp, content) VALUES ($1, $2, $3, $4)`,
			id, i, l.Timestamp, l.Content); err != nil {
			return fmt.Errorf("postgres store: insert line %d for %q: %w", i, id, err)
		}
	}
	return nil
}

// replaceKeywords rewrites a mission's whole keyword set inside tx.
func replaceKeywords(ctx context.Context, tx pgx.Tx, id string, keywords []lyrics.Keyword) error {
	if _, err := tx.Exec(ctx, `DELETE FROM mission_keywords WHERE mission_id = $1`, id); err != nil {
		return fmt.Errorf("postgres store: clear keywords for %q: %w", id, err)
	}
	for i, k := range keywords {
		if _, err := tx.Exec(ctx, `
			INSERT INTO mission_keywords (mission_id, idx, word, definition, phonetic, example, translated)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, i, k.Word, k.Definition, k.Phonetic, k.Example, k.Translated); err != nil {
			return fmt.Errorf("postgres store: insert keyword %d for %q: %w", i, id, err)
		}
	}
	return nil
}
