// Package session manages live mission playback sessions. A [Session] owns
// exactly one player handle and one mission's lyric state, runs the tick
// loop that drives the sync engine, and arbitrates between the two mutually
// exclusive interaction modes: normal playback (offset adjustment, line and
// keyword clicks) and producer recording (manual re-timing).
//
// Mode exclusion follows single-writer discipline: while the producer
// controller is recording, offset controls are disabled and tick updates are
// suspended; leaving producer mode (commit or cancel) restores them.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gosync "sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hanbyeol/lyrico/internal/mission"
	"github.com/hanbyeol/lyrico/internal/observe"
	"github.com/hanbyeol/lyrico/internal/overlay"
	"github.com/hanbyeol/lyrico/internal/player"
	"github.com/hanbyeol/lyrico/internal/producer"
	syncengine "github.com/hanbyeol/lyrico/internal/sync"
	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

// offsetStep is the granularity of manual offset adjustment in seconds.
const offsetStep = 0.5

// defaultTickInterval is how often the tick loop samples the player clock.
const defaultTickInterval = 100 * time.Millisecond

// Mode identifies which interaction mode currently owns the session.
type Mode string

const (
	// ModePlayback is the normal mode: synced lyrics, offset controls,
	// line and keyword clicks.
	ModePlayback Mode = "playback"

	// ModeProducer is the manual re-timing mode.
	ModeProducer Mode = "producer"
)

// State is a session's externally visible sync state, recomputed every tick.
type State struct {
	Mode         Mode    `json:"mode"`
	ActiveIndex  int     `json:"active_index"`
	AdjustedTime float64 `json:"adjusted_time"`
	Offset       float64 `json:"offset"`

	// OffsetControlsEnabled reports whether offset adjustment is currently
	// allowed; false for the whole duration of a producer session.
	OffsetControlsEnabled bool `json:"offset_controls_enabled"`

	// ProducerCursor is the next line to stamp while in producer mode. It
	// is always present, even at zero, so a freshly entered recording is
	// not mistaken for playback by clients keying on the field.
	ProducerCursor int `json:"producer_cursor"`
}

// Config configures a [Session].
type Config struct {
	// Mission is the mission being played. Required.
	Mission *lyrics.Mission

	// Store persists offset saves and producer commits. Required.
	Store mission.Store

	// Metrics receives session telemetry. May be nil in tests.
	Metrics *observe.Metrics

	// TickInterval overrides the tick loop period. Defaults to 100ms.
	TickInterval time.Duration

	// ProducerRate overrides the slowed playback rate used while a
	// producer session records. Zero uses the producer default.
	ProducerRate float64

	// OnKeywordSelected is notified when a keyword overlay is activated.
	// May be nil.
	OnKeywordSelected func(lyrics.Keyword)
}

// Session is one live playback session. All exported methods are safe for
// concurrent use.
type Session struct {
	missionID string
	store     mission.Store
	metrics   *observe.Metrics
	interval  time.Duration

	// plr is the shared player handle; nil inside means no player attached.
	plr *sharedPlayer

	tokenizer  *overlay.Tokenizer
	dispatcher *overlay.Dispatcher
	prod       *producer.Controller

	mu      gosync.Mutex
	lines   []lyrics.Line
	offset  float64
	state   State
	started bool

	done     chan struct{}
	stopOnce gosync.Once
}

// New creates a Session in playback mode with no player attached. The tick
// loop does not run until [Session.Start].
func New(cfg Config) (*Session, error) {
	if cfg.Mission == nil {
		return nil, fmt.Errorf("session: mission is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}

	s := &Session{
		missionID: cfg.Mission.ID,
		store:     cfg.Store,
		metrics:   cfg.Metrics,
		interval:  interval,
		plr:       &sharedPlayer{},
		tokenizer: overlay.NewTokenizer(cfg.Mission.Keywords),
		lines:     cfg.Mission.CloneLines(),
		offset:    cfg.Mission.Offset,
		done:      make(chan struct{}),
		state: State{
			Mode:                  ModePlayback,
			ActiveIndex:           syncengine.NoActiveLine,
			Offset:                cfg.Mission.Offset,
			OffsetControlsEnabled: true,
		},
	}

	s.dispatcher = overlay.NewDispatcher(
		s.plr.Playing,
		s.plr.Pause,
		func(kw lyrics.Keyword) {
			if s.metrics != nil {
				s.metrics.KeywordActivations.Add(context.Background(), 1,
					metric.WithAttributes(attribute.String("mission_id", s.missionID)))
			}
			if cfg.OnKeywordSelected != nil {
				cfg.OnKeywordSelected(kw)
			}
		},
	)

	s.prod = producer.New(producer.Config{
		Player: s.plr,
		Rate:   cfg.ProducerRate,
		Commit: s.persistLines,
	})
	return s, nil
}

// AttachPlayer hands the session its player handle, replacing any previous
// one. Passing nil detaches the player; the session then degrades every
// transport action to a no-op.
func (s *Session) AttachPlayer(p player.Player) {
	s.plr.set(p)
}

// DetachPlayer removes p only if it is still the attached player, and
// reports whether it was. On a browser reconnect the new socket can attach
// before the old handler notices its connection died; the old handler's
// teardown must not knock out the replacement.
func (s *Session) DetachPlayer(p player.Player) bool {
	return s.plr.clearIf(p)
}

// Start launches the tick loop. Repeated calls are no-ops.
func (s *Session) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(context.Background(), 1)
	}
	go s.run()
}

// Stop terminates the tick loop. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.metrics != nil {
			s.metrics.ActiveSessions.Add(context.Background(), -1)
		}
	})
}

// run is the tick loop: sample, recompute, publish.
func (s *Session) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick recomputes the sync state from an atomic snapshot of the inputs.
// While the producer owns the session the playback state is left untouched.
func (s *Session) tick() {
	if s.prod.Recording() {
		return
	}
	start := time.Now()
	now := s.plr.CurrentTime()

	s.mu.Lock()
	// Lines, clock sample, and offset form one snapshot for this tick; the
	// offset cannot change between the sample above and the compute below
	// because AdjustOffset takes the same lock.
	result := syncengine.Tick(syncengine.Snapshot{
		Lines:       s.lines,
		CurrentTime: now,
		Offset:      s.offset,
	})
	s.state.ActiveIndex = result.ActiveIndex
	s.state.AdjustedTime = result.AdjustedTime
	s.state.Offset = s.offset
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.TickDuration.Record(context.Background(), time.Since(start).Seconds())
	}
}

// State returns the most recently published session state.
func (s *Session) State() State {
	// Producer state is read before the session lock: the commit path holds
	// the producer lock while it re-enters the session to adopt the new
	// lines, so the two locks must never be taken in the other order.
	recording := s.prod.Recording()
	cursor := s.prod.Cursor()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if recording {
		st.Mode = ModeProducer
		st.OffsetControlsEnabled = false
		st.ProducerCursor = cursor
	} else {
		st.Mode = ModePlayback
		st.OffsetControlsEnabled = true
	}
	return st
}

// Lines returns a copy of the session's current lyric sequence.
func (s *Session) Lines() []lyrics.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]lyrics.Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// TokenizeLine returns the overlay token stream for the line at index, or
// nil for an out-of-range index.
func (s *Session) TokenizeLine(index int) []overlay.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.lines) {
		return nil
	}
	return s.tokenizer.Tokenize(s.lines[index].Content)
}

// ClickLine seeks the media to the clicked line's lyric time (converted to
// the media clock) and resumes playback. A click on an untimed line seeks
// to the start of the timeline; a click with no player attached is a no-op.
// Disabled while producer mode owns the session.
func (s *Session) ClickLine(index int) {
	if s.prod.Recording() {
		return
	}

	s.mu.Lock()
	if index < 0 || index >= len(s.lines) {
		s.mu.Unlock()
		return
	}
	target := syncengine.SeekRequest(s.lines[index].Seconds(), s.offset)
	s.mu.Unlock()

	if err := s.plr.SeekTo(target, true); err != nil {
		slog.Warn("session: line click seek failed", "mission_id", s.missionID, "err", err)
	}
}

// ActivateKeyword routes a click on a keyword span: pause playback and emit
// the selection event. Returns false for a word not in the mission's
// keyword set.
func (s *Session) ActivateKeyword(word string) bool {
	tokens := s.tokenizer.Tokenize(word)
	if len(tokens) != 1 || !tokens[0].IsKeyword() {
		return false
	}
	s.dispatcher.Activate(*tokens[0].Keyword)
	return true
}

// AdjustOffset shifts the manual sync offset by steps half-second
// increments and returns the new value. Disabled (returns the current
// value unchanged) while producer mode owns the session.
func (s *Session) AdjustOffset(steps int) float64 {
	if s.prod.Recording() {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.offset
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += float64(steps) * offsetStep
	// Publish immediately so readers between ticks see the new value.
	s.state.Offset = s.offset
	return s.offset
}

// SaveOffset persists the current offset. On failure the in-memory value is
// kept so the user can retry the save without losing the adjustment.
func (s *Session) SaveOffset(ctx context.Context) error {
	s.mu.Lock()
	offset := s.offset
	s.mu.Unlock()

	if err := s.store.UpdateOffset(ctx, s.missionID, offset); err != nil {
		if s.metrics != nil {
			s.metrics.PersistenceFailures.Add(ctx, 1,
				metric.WithAttributes(attribute.String("op", "offset")))
		}
		return fmt.Errorf("session: save offset: %w", err)
	}
	return nil
}

// EnterProducer starts a producer recording session over the current lines.
func (s *Session) EnterProducer() {
	s.mu.Lock()
	lines := make([]lyrics.Line, len(s.lines))
	copy(lines, s.lines)
	s.mu.Unlock()
	s.prod.Enter(lines)
}

// ProducerHit stamps the current line; see [producer.Controller.Hit].
func (s *Session) ProducerHit() { s.prod.Hit() }

// ProducerUndo reverts the last stamp; see [producer.Controller.Undo].
func (s *Session) ProducerUndo() { s.prod.Undo() }

// ProducerCommit finalises the recording session. On success the session's
// lines are the interpolated sequence and the store holds them; on failure
// the recording session survives for a retry.
func (s *Session) ProducerCommit(ctx context.Context) error {
	return s.prod.Commit(ctx)
}

// ProducerCancel discards the recording session.
func (s *Session) ProducerCancel() { s.prod.Cancel() }

// ProducerLines returns the producer's working sequence, or nil outside a
// recording session.
func (s *Session) ProducerLines() []lyrics.Line {
	return s.prod.WorkingLines()
}

// persistLines is the producer's commit sink: write through to the store,
// then adopt the re-timed sequence as the session's own.
func (s *Session) persistLines(ctx context.Context, lines []lyrics.Line) error {
	if err := s.store.UpdateLines(ctx, s.missionID, lines); err != nil {
		if s.metrics != nil {
			s.metrics.PersistenceFailures.Add(ctx, 1,
				metric.WithAttributes(attribute.String("op", "lines")))
		}
		return err
	}

	s.mu.Lock()
	s.lines = lines
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ProducerCommits.Add(ctx, 1,
			metric.WithAttributes(attribute.String("mission_id", s.missionID)))
	}
	return nil
}
