// Package producer implements the manual re-synchronization workflow: an
// operator listens to the song at reduced speed and taps a control once per
// lyric line; each tap stamps the line at the current media time. Remaining
// untimed lines are filled by interpolation when the session is committed.
//
// The controller is an explicit two-state machine (Inactive, Recording) with
// pure callable transitions — Enter, Hit, Undo, Commit, Cancel — so the
// whole workflow is testable without a UI harness or a real player. Misuse
// is inert: every transition invoked outside its valid state is a no-op,
// never an error. Only the persistence boundary (Commit's write-back) can
// fail, and a failed commit keeps the session alive so the operator retries
// without re-recording.
package producer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hanbyeol/lyrico/internal/player"
	"github.com/hanbyeol/lyrico/pkg/lyrics"
	"github.com/hanbyeol/lyrico/pkg/timestamp"
)

// Default recording parameters.
const (
	// defaultRate is the forced playback rate while recording. Slower
	// playback gives the operator time to react per line.
	defaultRate = 0.75

	// defaultUndoRewind is how far before the cleared stamp playback is
	// rewound on undo, so the operator hears the line again before re-hitting.
	defaultUndoRewind = 2.0

	// normalRate restores regular playback on commit or cancel.
	normalRate = 1.0
)

// CommitFunc persists a fully re-timed line sequence. It is the external
// mission-update collaborator; a non-nil error means nothing was persisted.
type CommitFunc func(ctx context.Context, lines []lyrics.Line) error

// Config configures a [Controller].
type Config struct {
	// Player is the playback handle the controller records against. May be
	// nil, in which case time reads as 0 and transport controls are skipped
	// (unsupported-environment degradation).
	Player player.Player

	// Commit persists the re-timed sequence. Must not be nil.
	Commit CommitFunc

	// Rate overrides the recording playback rate. Defaults to 0.75.
	Rate float64

	// UndoRewind overrides the undo rewind margin in seconds. Defaults to 2.
	UndoRewind float64
}

// Controller is the manual re-sync state machine. All methods are safe for
// concurrent use; the keyboard and pointer paths both funnel into [Controller.Hit].
type Controller struct {
	player     player.Player
	commit     CommitFunc
	rate       float64
	undoRewind float64

	mu        sync.Mutex
	recording bool
	lines     []lyrics.Line
	cursor    int
}

// New creates a Controller in the Inactive state.
func New(cfg Config) *Controller {
	rate := cfg.Rate
	if rate <= 0 {
		rate = defaultRate
	}
	rewind := cfg.UndoRewind
	if rewind <= 0 {
		rewind = defaultUndoRewind
	}
	return &Controller{
		player:     cfg.Player,
		commit:     cfg.Commit,
		rate:       rate,
		undoRewind: rewind,
	}
}

// Recording reports whether a session is active.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// Cursor returns the index of the next line to stamp, or 0 when Inactive.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// WorkingLines returns a copy of the session's working sequence, or nil
// when Inactive.
func (c *Controller) WorkingLines() []lyrics.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return nil
	}
	out := make([]lyrics.Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Enter starts a recording session over the given lines: the working copy
// has every timestamp cleared, the cursor rests on the first line, playback
// is paused at the start of the media, and the rate is forced down.
// No-op while already Recording or when lines is empty.
func (c *Controller) Enter(lines []lyrics.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording || len(lines) == 0 {
		return
	}

	working := make([]lyrics.Line, len(lines))
	for i, l := range lines {
		working[i] = lyrics.Line{Content: l.Content}
	}
	c.lines = working
	c.cursor = 0
	c.recording = true

	if c.player != nil {
		if err := c.player.Pause(); err != nil {
			slog.Warn("producer: pause failed", "err", err)
		}
		if err := c.player.SeekTo(0, false); err != nil {
			slog.Warn("producer: seek to start failed", "err", err)
		}
		if err := c.player.SetPlaybackRate(c.rate); err != nil {
			slog.Warn("producer: rate override failed", "err", err)
		}
	}
}

// Hit stamps the cursor line with the current media time and advances the
// cursor, clamped to the last line — repeated taps at the end re-stamp the
// final line rather than running off the sequence. No-op while Inactive,
// which is what suppresses the global keyboard shortcut outside a session.
func (c *Controller) Hit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return
	}

	now := 0.0
	if c.player != nil {
		now = c.player.CurrentTime()
	}
	c.lines[c.cursor].Timestamp = timestamp.Format(now)

	if c.cursor < len(c.lines)-1 {
		c.cursor++
	}
}

// Undo steps the cursor back one line, clears the stamp written there, and
// rewinds playback to shortly before that stamp so the operator can re-hit
// the line. No-op at cursor 0.
func (c *Controller) Undo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording || c.cursor == 0 {
		return
	}

	c.cursor--
	cleared := c.lines[c.cursor].Seconds()
	c.lines[c.cursor].Timestamp = ""

	if c.player != nil {
		target := cleared - c.undoRewind
		if target < 0 {
			target = 0
		}
		if err := c.player.SeekTo(target, true); err != nil {
			slog.Warn("producer: undo rewind failed", "err", err)
		}
	}
}

// Commit interpolates the remaining untimed lines and persists the result
// through the mission-update collaborator. On success the session is
// discarded and the playback rate restored; on persistence failure the
// session — including every stamp recorded so far — survives so the
// operator can retry Commit. No-op (nil) while Inactive.
func (c *Controller) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return nil
	}

	final := lyrics.Interpolate(c.lines)
	if err := c.commit(ctx, final); err != nil {
		return fmt.Errorf("producer: commit: %w", err)
	}

	c.teardown()
	return nil
}

// Cancel discards the session without persisting and restores the playback
// rate. No-op while Inactive.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return
	}
	c.teardown()
}

// teardown ends the session and restores the playback rate. Caller holds mu.
func (c *Controller) teardown() {
	c.recording = false
	c.lines = nil
	c.cursor = 0
	if c.player != nil {
		if err := c.player.SetPlaybackRate(normalRate); err != nil {
			slog.Warn("producer: rate restore failed", "err", err)
		}
	}
}
