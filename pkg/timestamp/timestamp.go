// Package timestamp implements the bracketed lyric timestamp convention used
// throughout Lyrico: `[MM:SS.ss]`, where MM is minutes (unbounded, at least
// two digits) and SS.ss is seconds with a two-digit fraction.
//
// Parsing is deliberately forgiving: any string that does not match the
// pattern — including the empty string, which marks a line as not yet timed —
// parses to 0, the beginning of the timeline. Callers that need to
// distinguish "untimed" from "timed at zero" must check the raw string, not
// the parsed value.
package timestamp

import (
	"fmt"
	"regexp"
	"strconv"
)

// pattern matches the bracketed form, e.g. "[01:05.20]" or "[112:09.00]".
// The fractional part is required: "[02:30]" is not a timestamp.
var pattern = regexp.MustCompile(`^\[(\d+):(\d+\.\d+)\]$`)

// Parse converts a bracketed timestamp into seconds. Malformed or empty
// input returns 0 — never an error. Degrading to the start of the timeline
// keeps playback usable when a mission carries hand-edited or untimed lines.
func Parse(text string) float64 {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	minutes, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0
	}
	return minutes*60 + seconds
}

// Format renders seconds as a bracketed timestamp, the inverse of [Parse].
// Minutes are zero-padded to two digits and the seconds part is rendered as
// a zero-padded two-digit integer with two decimals, e.g. Format(65.2)
// returns "[01:05.20]". Negative input is clamped to zero.
func Format(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	rem := seconds - float64(minutes*60)
	return fmt.Sprintf("[%02d:%05.2f]", minutes, rem)
}

// IsSet reports whether text carries a parseable timestamp. The empty string
// and anything else that fails the pattern count as unset.
func IsSet(text string) bool {
	return pattern.MatchString(text)
}
