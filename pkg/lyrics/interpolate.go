package lyrics

import "github.com/hanbyeol/lyrico/pkg/timestamp"

// Interpolate fills untimed lines that sit between two timed anchors with
// linearly interpolated timestamps. For a gap of n untimed lines between
// anchors at t0 and t1, the j-th line of the gap (1-indexed) receives
// t0 + j*(t1-t0)/(n+1).
//
// Lines before the first anchor and after the last anchor are left untimed —
// a single anchor never fabricates times on its own, so sequences with zero
// or one anchor come back unchanged. The input slice is never mutated; the
// result is always a fresh copy.
func Interpolate(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)

	prev := -1 // index of the previous anchor, -1 before the first
	for i := range out {
		if !out[i].Timed() {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			fillGap(out, prev, i)
		}
		prev = i
	}
	return out
}

// fillGap stamps the untimed lines strictly between anchors lo and hi.
func fillGap(lines []Line, lo, hi int) {
	t0 := lines[lo].Seconds()
	t1 := lines[hi].Seconds()
	n := hi - lo - 1
	step := (t1 - t0) / float64(n+1)

	for j := 1; j <= n; j++ {
		lines[lo+j].Timestamp = timestamp.Format(t0 + float64(j)*step)
	}
}
