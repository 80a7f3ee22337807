// Package mission defines the persistence contract for missions (song-based
// learning units) and learner progress, together with an in-memory
// implementation for tests and single-process use. The postgres subpackage
// provides the production store.
package mission

import (
	"context"
	"errors"

	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

// ErrNotFound is returned when a mission or learner record does not exist.
var ErrNotFound = errors.New("mission: not found")

// Progress is a learner's gamification ledger: experience points, gacha
// tickets, and the set of owned card IDs.
type Progress struct {
	LearnerID string   `json:"learner_id"`
	XP        int      `json:"xp"`
	Tickets   int      `json:"tickets"`
	Cards     []string `json:"cards"`
}

// Store is the mission persistence contract. The sync core only ever writes
// lyric lines as a whole array (producer commit) or a single offset value;
// partial line updates do not exist.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// GetMission returns the mission with the given ID, or [ErrNotFound].
	GetMission(ctx context.Context, id string) (*lyrics.Mission, error)

	// ListMissions returns all missions ordered by title.
	ListMissions(ctx context.Context) ([]lyrics.Mission, error)

	// PutMission creates or fully replaces a mission.
	PutMission(ctx context.Context, m *lyrics.Mission) error

	// UpdateLines replaces the mission's whole lyric sequence. Used by a
	// successful producer commit.
	UpdateLines(ctx context.Context, id string, lines []lyrics.Line) error

	// UpdateOffset stores the mission's manual sync offset in seconds.
	UpdateOffset(ctx context.Context, id string, offset float64) error

	// GetProgress returns the learner's ledger, or [ErrNotFound] for an
	// unknown learner.
	GetProgress(ctx context.Context, learnerID string) (Progress, error)

	// PutProgress creates or replaces a learner's ledger.
	PutProgress(ctx context.Context, p Progress) error
}
