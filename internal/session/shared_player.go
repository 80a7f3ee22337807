package session

import (
	gosync "sync"

	"github.com/hanbyeol/lyrico/internal/player"
)

// Compile-time assertion that sharedPlayer satisfies the player interface.
var _ player.Player = (*sharedPlayer)(nil)

// sharedPlayer is a swappable, nil-safe player handle. The session and the
// producer controller both hold it, so the real bridge can attach and detach
// mid-session without either component re-wiring.
//
// It carries its own lock, independent of the session mutex: the producer
// controller reads the clock while holding its own state lock, and routing
// that read through the session mutex would order locks both ways.
//
// With no player attached every transport action degrades to a successful
// no-op and the clock reads zero — the unsupported-environment behaviour the
// rest of the core relies on.
type sharedPlayer struct {
	mu gosync.RWMutex
	p  player.Player
}

// set swaps the underlying player; nil detaches.
func (h *sharedPlayer) set(p player.Player) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.p = p
}

// clearIf detaches the underlying player only when it is still p, and
// reports whether it did. A stale handle loses the race to a newer one.
func (h *sharedPlayer) clearIf(p player.Player) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.p != p {
		return false
	}
	h.p = nil
	return true
}

// get returns the current underlying player, possibly nil.
func (h *sharedPlayer) get() player.Player {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.p
}

// CurrentTime implements [player.Player].
func (h *sharedPlayer) CurrentTime() float64 {
	if p := h.get(); p != nil {
		return p.CurrentTime()
	}
	return 0
}

// Playing implements [player.Player].
func (h *sharedPlayer) Playing() bool {
	if p := h.get(); p != nil {
		return p.Playing()
	}
	return false
}

// SeekTo implements [player.Player].
func (h *sharedPlayer) SeekTo(seconds float64, resume bool) error {
	if p := h.get(); p != nil {
		return p.SeekTo(seconds, resume)
	}
	return nil
}

// SetPlaybackRate implements [player.Player].
func (h *sharedPlayer) SetPlaybackRate(multiplier float64) error {
	if p := h.get(); p != nil {
		return p.SetPlaybackRate(multiplier)
	}
	return nil
}

// Play implements [player.Player].
func (h *sharedPlayer) Play() error {
	if p := h.get(); p != nil {
		return p.Play()
	}
	return nil
}

// Pause implements [player.Player].
func (h *sharedPlayer) Pause() error {
	if p := h.get(); p != nil {
		return p.Pause()
	}
	return nil
}
