package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gosync "sync"

	"github.com/hanbyeol/lyrico/internal/mission"
	"github.com/hanbyeol/lyrico/internal/observe"
	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

// Manager owns the set of live sessions, at most one per mission. All
// exported methods are safe for concurrent use.
type Manager struct {
	store    mission.Store
	metrics  *observe.Metrics
	interval time.Duration
	prodRate float64
	onKw     func(lyrics.Keyword)

	mu       gosync.Mutex
	sessions map[string]*Session
}

// ManagerConfig configures a [Manager].
type ManagerConfig struct {
	// Store backs every created session. Required.
	Store mission.Store

	// Metrics receives session telemetry. May be nil.
	Metrics *observe.Metrics

	// TickInterval overrides each session's tick period. Zero uses the
	// session default.
	TickInterval time.Duration

	// ProducerRate overrides the producer recording playback rate. Zero
	// uses the producer default.
	ProducerRate float64

	// OnKeywordSelected is passed through to every session. May be nil.
	OnKeywordSelected func(lyrics.Keyword)
}

// NewManager creates an empty session manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: manager store is required")
	}
	return &Manager{
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		interval: cfg.TickInterval,
		prodRate: cfg.ProducerRate,
		onKw:     cfg.OnKeywordSelected,
		sessions: make(map[string]*Session),
	}, nil
}

// Open returns the live session for the given mission, creating and
// starting one from the stored mission when none exists yet.
func (m *Manager) Open(ctx context.Context, missionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[missionID]; ok {
		return s, nil
	}

	msn, err := m.store.GetMission(ctx, missionID)
	if err != nil {
		return nil, fmt.Errorf("session: open %q: %w", missionID, err)
	}

	s, err := New(Config{
		Mission:           msn,
		Store:             m.store,
		Metrics:           m.metrics,
		TickInterval:      m.interval,
		ProducerRate:      m.prodRate,
		OnKeywordSelected: m.onKw,
	})
	if err != nil {
		return nil, err
	}
	s.Start()
	m.sessions[missionID] = s

	slog.Info("session opened", "mission_id", missionID, "title", msn.Title)
	return s, nil
}

// SetTickInterval changes the tick period used by sessions opened from now
// on. Already-open sessions keep their period.
func (m *Manager) SetTickInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = d
}

// SetProducerRate changes the producer recording rate used by sessions
// opened from now on.
func (m *Manager) SetProducerRate(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prodRate = rate
}

// Get returns the live session for a mission, or nil when none is open.
func (m *Manager) Get(missionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[missionID]
}

// Close stops and removes the session for a mission. No-op for an unknown
// mission.
func (m *Manager) Close(missionID string) {
	m.mu.Lock()
	s, ok := m.sessions[missionID]
	if ok {
		delete(m.sessions, missionID)
	}
	m.mu.Unlock()

	if ok {
		s.Stop()
		slog.Info("session closed", "mission_id", missionID)
	}
}

// Shutdown stops every live session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for id, s := range sessions {
		s.Stop()
		slog.Debug("session stopped during shutdown", "mission_id", id)
	}
}
