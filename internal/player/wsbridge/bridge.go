// Package wsbridge implements [player.Player] over a websocket connection to
// the browser-side media player.
//
// The browser owns the actual media element. It streams time reports to the
// server as JSON frames and executes the command frames the server writes
// back (seek, rate, play, pause). The bridge caches the last reported
// position so [Bridge.CurrentTime] is a cheap in-memory read for the tick
// loop, never a network round-trip.
//
// Frame protocol (one JSON object per websocket text message):
//
//	client → server: {"type":"time","seconds":12.34,"playing":true}
//	server → client: {"type":"seek","seconds":7.0,"resume":true}
//	                 {"type":"rate","multiplier":0.75}
//	                 {"type":"play"} / {"type":"pause"}
package wsbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hanbyeol/lyrico/internal/player"
)

// Compile-time assertion that Bridge satisfies the player interface.
var _ player.Player = (*Bridge)(nil)

// ErrClosed is returned by control methods after the bridge connection has
// been closed. Callers treat it as "no player attached" and degrade to
// no-op behaviour rather than failing the session.
var ErrClosed = errors.New("wsbridge: connection closed")

// Frame is one message on the bridge socket, in either direction. Unused
// fields are omitted from the wire form.
type Frame struct {
	Type       string  `json:"type"`
	Seconds    float64 `json:"seconds,omitempty"`
	Playing    bool    `json:"playing,omitempty"`
	Resume     bool    `json:"resume,omitempty"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

// Frame types understood by the bridge.
const (
	FrameTime  = "time"
	FrameSeek  = "seek"
	FrameRate  = "rate"
	FramePlay  = "play"
	FramePause = "pause"
)

// Bridge adapts a websocket connection to the [player.Player] interface.
// All methods are safe for concurrent use.
type Bridge struct {
	conn *websocket.Conn

	// writeMu serialises command writes; coder/websocket allows only one
	// concurrent writer.
	writeMu sync.Mutex

	mu      sync.RWMutex
	time    float64
	playing bool
	closed  bool

	done     chan struct{}
	doneOnce sync.Once
}

// New wraps an accepted websocket connection in a Bridge and starts the
// read loop that consumes time reports. The loop exits when the connection
// drops or ctx is cancelled; after that every control method returns
// [ErrClosed].
func New(ctx context.Context, conn *websocket.Conn) *Bridge {
	b := &Bridge{conn: conn, done: make(chan struct{})}
	go b.readLoop(ctx)
	return b
}

// Done is closed once the bridge connection has ended, whether by the peer
// hanging up, context cancellation, or an explicit [Bridge.Close].
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// markClosed flips the closed flag and releases Done waiters.
func (b *Bridge) markClosed() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.doneOnce.Do(func() { close(b.done) })
}

// readLoop consumes time frames until the connection dies.
func (b *Bridge) readLoop(ctx context.Context) {
	for {
		var f Frame
		if err := wsjson.Read(ctx, b.conn, &f); err != nil {
			b.markClosed()
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				slog.Debug("player bridge read loop ended", "err", err)
			}
			return
		}
		if f.Type != FrameTime {
			continue
		}
		b.mu.Lock()
		b.time = f.Seconds
		b.playing = f.Playing
		b.mu.Unlock()
	}
}

// CurrentTime implements [player.Player]. Returns the last reported media
// position; zero until the first time frame arrives.
func (b *Bridge) CurrentTime() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.time
}

// Playing implements [player.Player].
func (b *Bridge) Playing() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.playing
}

// SeekTo implements [player.Player]. The browser confirms the new position
// through its next time frame; the cached clock is updated optimistically so
// the tick loop doesn't observe a stale position in between.
func (b *Bridge) SeekTo(seconds float64, resume bool) error {
	if err := b.write(Frame{Type: FrameSeek, Seconds: seconds, Resume: resume}); err != nil {
		return err
	}
	b.mu.Lock()
	b.time = seconds
	if resume {
		b.playing = true
	}
	b.mu.Unlock()
	return nil
}

// SetPlaybackRate implements [player.Player].
func (b *Bridge) SetPlaybackRate(multiplier float64) error {
	return b.write(Frame{Type: FrameRate, Multiplier: multiplier})
}

// Play implements [player.Player].
func (b *Bridge) Play() error {
	if err := b.write(Frame{Type: FramePlay}); err != nil {
		return err
	}
	b.mu.Lock()
	b.playing = true
	b.mu.Unlock()
	return nil
}

// Pause implements [player.Player].
func (b *Bridge) Pause() error {
	if err := b.write(Frame{Type: FramePause}); err != nil {
		return err
	}
	b.mu.Lock()
	b.playing = false
	b.mu.Unlock()
	return nil
}

// Close closes the underlying websocket with a normal-closure status.
func (b *Bridge) Close() error {
	b.markClosed()
	return b.conn.Close(websocket.StatusNormalClosure, "bridge closed")
}

// write sends one command frame under the write mutex.
func (b *Bridge) write(f Frame) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := wsjson.Write(context.Background(), b.conn, f); err != nil {
		return fmt.Errorf("wsbridge: write %s frame: %w", f.Type, err)
	}
	return nil
}
