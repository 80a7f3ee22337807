// Package lyrics defines the shared lyric data model for Lyrico: timed lyric
// lines, vocabulary keywords, and the mission that owns them, plus the gap
// interpolator that fills untimed lines between known anchors.
//
// A [Line] sequence is ordered by playback position. Line timestamps use the
// bracketed convention from [github.com/hanbyeol/lyrico/pkg/timestamp]; an
// empty Timestamp means the line has not been timed yet. Sequences are
// treated as immutable by readers — only a producer commit or an
// interpolation pass produces a new sequence, always as a whole array.
package lyrics

import "github.com/hanbyeol/lyrico/pkg/timestamp"

// Line is one unit of displayed lyric text tied to a point in the media
// timeline.
type Line struct {
	// Timestamp is the bracketed "[MM:SS.ss]" time of this line, or the
	// empty string when the line has not been timed.
	Timestamp string `json:"timestamp"`

	// Content is the display text of the line.
	Content string `json:"content"`
}

// Seconds returns the line's timestamp in seconds. Untimed and malformed
// timestamps read as 0, the start of the timeline.
func (l Line) Seconds() float64 {
	return timestamp.Parse(l.Timestamp)
}

// Timed reports whether the line carries a valid timestamp.
func (l Line) Timed() bool {
	return timestamp.IsSet(l.Timestamp)
}

// Keyword is a vocabulary term with its learning metadata. Keywords are
// immutable once loaded from a mission.
type Keyword struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Phonetic   string `json:"phonetic"`
	Example    string `json:"example"`
	Translated string `json:"translated,omitempty"`
}

// Mission is one song-based learning unit: the media reference, the timed
// lyric sequence, the vocabulary set, and the stored sync offset.
type Mission struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	MediaRef string    `json:"media_ref"`
	Offset   float64   `json:"offset"`
	Lines    []Line    `json:"lines"`
	Keywords []Keyword `json:"keywords"`
}

// CloneLines returns a deep copy of the mission's line sequence. Callers
// that mutate lines (the producer workflow) must work on a clone so the
// mission's own sequence is only ever replaced wholesale.
func (m *Mission) CloneLines() []Line {
	out := make([]Line, len(m.Lines))
	copy(out, m.Lines)
	return out
}
