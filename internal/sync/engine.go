// Package sync implements the lyric-to-media synchronization core: selecting
// the active lyric line for a given playback position and converting
// lyric-timeline instants back into media seek targets.
//
// The engine holds no state of its own. Each tick it is handed an atomic
// [Snapshot] of the inputs — the line sequence, the raw media clock, and the
// user's manual offset — and recomputes the active line from scratch. This
// keeps the core scheduler-agnostic: a ticker goroutine, a test, or any other
// timing primitive can drive it by calling [Tick].
package sync

import "github.com/hanbyeol/lyrico/pkg/lyrics"

// NoActiveLine is the index reported when no lyric line is at or before the
// adjusted playback time (playback before the first timed line, or an empty
// line set).
const NoActiveLine = -1

// Snapshot is one tick's worth of engine input. The three fields must be
// sampled together — mixing an old offset with a new clock reading across a
// tick produces a transiently wrong active line.
type Snapshot struct {
	// Lines is the mission's lyric sequence, read-only to the engine.
	Lines []lyrics.Line

	// CurrentTime is the media clock in seconds, as reported by the player.
	CurrentTime float64

	// Offset is the manual sync correction in seconds, added to the media
	// clock before comparing against line timestamps.
	Offset float64
}

// State is the engine's output for one tick.
type State struct {
	// ActiveIndex is the index of the currently playing line, or
	// [NoActiveLine].
	ActiveIndex int

	// AdjustedTime is CurrentTime + Offset, the value that was compared
	// against line timestamps.
	AdjustedTime float64
}

// Tick recomputes the active line from an input snapshot.
func Tick(snap Snapshot) State {
	adjusted := snap.CurrentTime + snap.Offset
	return State{
		ActiveIndex:  ActiveIndex(snap.Lines, adjusted),
		AdjustedTime: adjusted,
	}
}

// ActiveIndex returns the index of the last line whose timestamp is at or
// before adjustedTime, or [NoActiveLine] when no line qualifies.
//
// The scan runs backward so that when several lines share a timestamp — in
// particular untimed lines, which all parse as 0 — the latest of them wins
// and playback advances forward through the duplicates instead of sticking
// on the first. Malformed timestamps degrade to 0 via the codec; the scan
// itself never fails.
func ActiveIndex(lines []lyrics.Line, adjustedTime float64) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Seconds() <= adjustedTime {
			return i
		}
	}
	return NoActiveLine
}

// SeekRequest converts a lyric-timeline instant into the media's native
// clock by removing the manual offset, floor-clamped so a large positive
// offset near the start of the song never produces a negative seek.
func SeekRequest(targetLyricTime, offset float64) float64 {
	t := targetLyricTime - offset
	if t < 0 {
		return 0
	}
	return t
}
