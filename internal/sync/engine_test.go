package sync

import (
	"testing"

	"github.com/hanbyeol/lyrico/pkg/lyrics"
	"github.com/hanbyeol/lyrico/pkg/timestamp"
)

func stamped(times ...float64) []lyrics.Line {
	lines := make([]lyrics.Line, len(times))
	for i, t := range times {
		lines[i] = lyrics.Line{Timestamp: timestamp.Format(t)}
	}
	return lines
}

func TestActiveIndex(t *testing.T) {
	tests := []struct {
		name  string
		lines []lyrics.Line
		time  float64
		want  int
	}{
		{"empty set", nil, 10, NoActiveLine},
		{"before first line", stamped(5, 10, 15), 2, NoActiveLine},
		{"exactly on a line", stamped(5, 10, 15), 10, 1},
		{"between lines", stamped(5, 10, 15), 12.3, 1},
		{"past the last line", stamped(5, 10, 15), 99, 2},
		// Duplicate timestamps: the later line wins so playback advances
		// forward through the duplicates.
		{"duplicate zeros tie-break", stamped(0, 0, 5), 2, 1},
		{"all duplicates", stamped(3, 3, 3), 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActiveIndex(tt.lines, tt.time); got != tt.want {
				t.Errorf("ActiveIndex(..., %v) = %d, want %d", tt.time, got, tt.want)
			}
		})
	}
}

func TestActiveIndex_MalformedTimestampsDegrade(t *testing.T) {
	lines := []lyrics.Line{
		{Timestamp: "not a stamp"},
		{Timestamp: ""},
		{Timestamp: "[00:05.00]"},
	}

	// Both malformed lines parse as 0; at t=2 the later of them is active.
	if got := ActiveIndex(lines, 2); got != 1 {
		t.Errorf("ActiveIndex = %d, want 1", got)
	}
	// Negative adjusted time (offset pulled below the start): nothing active.
	if got := ActiveIndex(lines, -1); got != NoActiveLine {
		t.Errorf("ActiveIndex = %d, want %d", got, NoActiveLine)
	}
}

func TestSeekRequest(t *testing.T) {
	if got := SeekRequest(10, 3); got != 7 {
		t.Errorf("SeekRequest(10, 3) = %v, want 7", got)
	}
	if got := SeekRequest(1, 5); got != 0 {
		t.Errorf("SeekRequest(1, 5) = %v, want 0 (clamped)", got)
	}
	if got := SeekRequest(10, -2); got != 12 {
		t.Errorf("SeekRequest(10, -2) = %v, want 12", got)
	}
}

func TestTick(t *testing.T) {
	snap := Snapshot{
		Lines:       stamped(0, 5, 20),
		CurrentTime: 4,
		Offset:      1.5,
	}

	state := Tick(snap)

	if state.AdjustedTime != 5.5 {
		t.Errorf("AdjustedTime = %v, want 5.5", state.AdjustedTime)
	}
	if state.ActiveIndex != 1 {
		t.Errorf("ActiveIndex = %d, want 1", state.ActiveIndex)
	}
}
