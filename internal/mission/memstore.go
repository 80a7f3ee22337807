package mission

import (
	"context"
	"sort"
	"sync"

	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for tests and for running without a database. All reads
// return deep copies so callers can never alias the stored line arrays.
type MemStore struct {
	mu       sync.RWMutex
	missions map[string]*lyrics.Mission
	progress map[string]Progress
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		missions: make(map[string]*lyrics.Mission),
		progress: make(map[string]Progress),
	}
}

// GetMission implements [Store.GetMission].
func (s *MemStore) GetMission(ctx context.Context, id string) (*lyrics.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.missions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMission(m), nil
}

// ListMissions implements [Store.ListMissions].
func (s *MemStore) ListMissions(ctx context.Context) ([]lyrics.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]lyrics.Mission, 0, len(s.missions))
	for _, m := range s.missions {
		out = append(out, *cloneMission(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// PutMission implements [Store.PutMission].
func (s *MemStore) PutMission(ctx context.Context, m *lyrics.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions[m.ID] = cloneMission(m)
	return nil
}

// UpdateLines implements [Store.UpdateLines].
func (s *MemStore) UpdateLines(ctx context.Context, id string, lines []lyrics.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[id]
	if !ok {
		return ErrNotFound
	}
	m.Lines = make([]lyrics.Line, len(lines))
	copy(m.Lines, lines)
	return nil
}

// UpdateOffset implements [Store.UpdateOffset].
func (s *MemStore) UpdateOffset(ctx context.Context, id string, offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.missions[id]
	if !ok {
		return ErrNotFound
	}
	m.Offset = offset
	return nil
}

// GetProgress implements [Store.GetProgress].
func (s *MemStore) GetProgress(ctx context.Context, learnerID string) (Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[learnerID]
	if !ok {
		return Progress{}, ErrNotFound
	}
	cards := make([]string, len(p.Cards))
	copy(cards, p.Cards)
	p.Cards = cards
	return p, nil
}

// PutProgress implements [Store.PutProgress].
func (s *MemStore) PutProgress(ctx context.Context, p Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]string, len(p.Cards))
	copy(cards, p.Cards)
	p.Cards = cards
	s.progress[p.LearnerID] = p
	return nil
}

// cloneMission deep-copies a mission, including its line and keyword slices.
func cloneMission(m *lyrics.Mission) *lyrics.Mission {
	out := *m
	out.Lines = make([]lyrics.Line, len(m.Lines))
	copy(out.Lines, m.Lines)
	out.Keywords = make([]lyrics.Keyword, len(m.Keywords))
	copy(out.Keywords, m.Keywords)
	return &out
}
