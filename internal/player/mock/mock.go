// Package mock provides an in-memory mock implementation of [player.Player]
// for use in unit tests.
//
// The mock is safe for concurrent use. It records every control call so that
// tests can assert on call order and arguments, and exposes exported fields
// the test can set to control the reported clock and returned errors.
//
// Typical usage:
//
//	p := &mock.Player{Time: 4.0}
//	ctrl.Hit() // stamps the current line at 4.0s
//	if len(p.SeekCalls) != 1 { ... }
package mock

import (
	"sync"

	"github.com/hanbyeol/lyrico/internal/player"
)

// Compile-time assertion that Player satisfies the player interface.
var _ player.Player = (*Player)(nil)

// SeekCall records one SeekTo invocation.
type SeekCall struct {
	Seconds float64
	Resume  bool
}

// Player is a mock implementation of [player.Player].
// Set the exported fields before use; inspect the *Calls fields after.
type Player struct {
	mu sync.Mutex

	// Time is returned by [Player.CurrentTime]. Tests advance it manually.
	Time float64

	// IsPlaying is returned by [Player.Playing]. SeekTo with resume, Play,
	// and Pause update it the way a real player would.
	IsPlaying bool

	// SeekError, RateError, PlayError, PauseError are returned by the
	// corresponding control methods.
	SeekError  error
	RateError  error
	PlayError  error
	PauseError error

	// SeekCalls records every SeekTo invocation in order.
	SeekCalls []SeekCall

	// RateCalls records every SetPlaybackRate invocation in order.
	RateCalls []float64

	// CallCountPlay and CallCountPause record control call counts.
	CallCountPlay  int
	CallCountPause int
}

// CurrentTime implements [player.Player]. Returns Time.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Time
}

// SetTime updates the reported clock. Provided for tests that advance time
// from another goroutine.
func (p *Player) SetTime(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Time = t
}

// Playing implements [player.Player]. Returns IsPlaying.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.IsPlaying
}

// SeekTo implements [player.Player]. Records the call, moves the mock clock
// to the target, and updates the playing flag per resume.
func (p *Player) SeekTo(seconds float64, resume bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SeekCalls = append(p.SeekCalls, SeekCall{Seconds: seconds, Resume: resume})
	if p.SeekError != nil {
		return p.SeekError
	}
	p.Time = seconds
	if resume {
		p.IsPlaying = true
	}
	return nil
}

// SetPlaybackRate implements [player.Player]. Records the multiplier.
func (p *Player) SetPlaybackRate(multiplier float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RateCalls = append(p.RateCalls, multiplier)
	return p.RateError
}

// Play implements [player.Player].
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountPlay++
	if p.PlayError != nil {
		return p.PlayError
	}
	p.IsPlaying = true
	return nil
}

// Pause implements [player.Player].
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountPause++
	if p.PauseError != nil {
		return p.PauseError
	}
	p.IsPlaying = false
	return nil
}
