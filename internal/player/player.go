// Package player defines the playback clock adapter contract: the narrow
// interface through which the sync core observes and steers the media player.
//
// The core never owns a player. The real player runs in the learner's
// browser and is bridged over a websocket (see the wsbridge subpackage);
// tests use the mock subpackage. The interface is deliberately small — a
// polled clock plus a handful of transport controls — so the sync engine and
// producer controller stay decoupled from any particular media stack.
package player

// Player is a handle to an external media player. Implementations must be
// safe for concurrent use: the tick loop polls CurrentTime at high frequency
// while user actions issue seeks and rate changes from other goroutines.
//
// Control methods return an error only for transport failures (e.g. a
// dropped bridge connection). A player that is attached but idle accepts all
// controls.
type Player interface {
	// CurrentTime returns the player's current media position in seconds.
	// It must be cheap: the tick loop calls it every poll interval.
	CurrentTime() float64

	// Playing reports whether the media is currently playing.
	Playing() bool

	// SeekTo moves playback to the given media time in seconds. When resume
	// is true, playback starts (or continues) after the seek.
	SeekTo(seconds float64, resume bool) error

	// SetPlaybackRate changes the playback speed multiplier (1.0 = normal).
	SetPlaybackRate(multiplier float64) error

	// Play starts or resumes playback.
	Play() error

	// Pause halts playback without losing position.
	Pause() error
}
