// Package gamify implements the learner reward ledger: XP awards for
// completed activities, rank derivation, the gacha ticket economy, and card
// draws. State is persisted through the mission store's progress operations.
package gamify

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/hanbyeol/lyrico/internal/mission"
)

// Activity identifies a completed learning activity for XP purposes.
type Activity string

const (
	ActivityLineClick    Activity = "line_click"
	ActivityKeywordStudy Activity = "keyword_study"
	ActivityChallenge    Activity = "challenge"
	ActivityQuizCorrect  Activity = "quiz_correct"
	ActivityMissionClear Activity = "mission_clear"
)

// xpAwards maps each activity to its XP value.
var xpAwards = map[Activity]int{
	ActivityLineClick:    1,
	ActivityKeywordStudy: 5,
	ActivityChallenge:    10,
	ActivityQuizCorrect:  15,
	ActivityMissionClear: 50,
}

// Rank is a learner tier derived from accumulated XP.
type Rank string

const (
	RankRookie  Rank = "rookie"
	RankTrainee Rank = "trainee"
	RankDebut   Rank = "debut"
	RankMain    Rank = "main"
	RankAllKill Rank = "all_kill"
)

// rankThresholds lists ranks in ascending XP order. A learner holds the
// highest rank whose threshold they have reached.
var rankThresholds = []struct {
	rank Rank
	xp   int
}{
	{RankRookie, 0},
	{RankTrainee, 100},
	{RankDebut, 500},
	{RankMain, 2000},
	{RankAllKill, 10000},
}

// RankFor returns the rank a learner with the given XP holds.
func RankFor(xp int) Rank {
	r := rankThresholds[0].rank
	for _, t := range rankThresholds {
		if xp >= t.xp {
			r = t.rank
		}
	}
	return r
}

var (
	// ErrNoTickets is returned by Draw when the learner has no tickets left.
	ErrNoTickets = errors.New("gamify: no tickets")

	// ErrPoolExhausted is returned by Draw when the learner already owns
	// every card in the pool.
	ErrPoolExhausted = errors.New("gamify: card pool exhausted")

	// ErrUnknownActivity is returned by Award for an activity with no XP
	// value.
	ErrUnknownActivity = errors.New("gamify: unknown activity")
)

// Ledger awards XP, tracks rank-ups, and runs card draws against a progress
// store. Safe for concurrent use as long as the underlying store is.
type Ledger struct {
	store mission.Store

	// intN picks a uniform value in [0, n). Defaults to rand.IntN; tests
	// replace it for deterministic draws.
	intN func(n int) int
}

// NewLedger creates a Ledger over the given store.
func NewLedger(store mission.Store) *Ledger {
	return &Ledger{store: store, intN: rand.IntN}
}

// AwardResult describes the outcome of one XP award.
type AwardResult struct {
	Progress mission.Progress
	Rank     Rank

	// RankedUp is set when this award crossed a rank threshold. Each rank-up
	// earns one ticket.
	RankedUp bool
}

// Award grants the XP for one completed activity and persists the updated
// ledger. Crossing a rank threshold earns one gacha ticket per rank gained.
func (l *Ledger) Award(ctx context.Context, learnerID string, activity Activity) (*AwardResult, error) {
	xp, ok := xpAwards[activity]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownActivity, activity)
	}

	prog, err := l.progress(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	before := RankFor(prog.XP)
	prog.XP += xp
	after := RankFor(prog.XP)

	res := &AwardResult{Rank: after}
	if after != before {
		res.RankedUp = true
		prog.Tickets += ranksGained(prog.XP-xp, prog.XP)
	}

	if err := l.store.PutProgress(ctx, prog); err != nil {
		return nil, fmt.Errorf("gamify: persist award: %w", err)
	}
	res.Progress = prog
	return res, nil
}

// Draw spends one ticket and picks a card uniformly from the part of pool
// the learner does not own yet. The updated ledger is persisted before the
// card is returned.
func (l *Ledger) Draw(ctx context.Context, learnerID string, pool []string) (string, error) {
	prog, err := l.progress(ctx, learnerID)
	if err != nil {
		return "", err
	}
	if prog.Tickets <= 0 {
		return "", ErrNoTickets
	}

	unowned := make([]string, 0, len(pool))
	for _, card := range pool {
		if !slices.Contains(prog.Cards, card) {
			unowned = append(unowned, card)
		}
	}
	if len(unowned) == 0 {
		return "", ErrPoolExhausted
	}

	// Flat pick: every unowned card is equally likely.
	card := unowned[l.intN(len(unowned))]

	prog.Tickets--
	prog.Cards = append(prog.Cards, card)
	if err := l.store.PutProgress(ctx, prog); err != nil {
		return "", fmt.Errorf("gamify: persist draw: %w", err)
	}
	return card, nil
}

// Progress returns the learner's current ledger, creating an empty one for
// a first-time learner.
func (l *Ledger) Progress(ctx context.Context, learnerID string) (mission.Progress, error) {
	return l.progress(ctx, learnerID)
}

func (l *Ledger) progress(ctx context.Context, learnerID string) (mission.Progress, error) {
	prog, err := l.store.GetProgress(ctx, learnerID)
	if errors.Is(err, mission.ErrNotFound) {
		return mission.Progress{LearnerID: learnerID}, nil
	}
	if err != nil {
		return mission.Progress{}, fmt.Errorf("gamify: load progress: %w", err)
	}
	return prog, nil
}

// ranksGained counts the thresholds crossed moving from oldXP to newXP.
func ranksGained(oldXP, newXP int) int {
	n := 0
	for _, t := range rankThresholds {
		if oldXP < t.xp && newXP >= t.xp {
			n++
		}
	}
	return n
}
