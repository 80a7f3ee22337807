// Package overlay turns plain lyric text into a token stream with vocabulary
// keywords marked for interactive highlighting, and routes keyword
// activations to the session's selection callback.
//
// Matching is case-insensitive on word boundaries. Keyword surfaces are
// sorted longest-first before the alternation is built so that the longest
// possible match always wins at any position — "Queencard" is one keyword
// span, not "card" nested inside it. Every surface is escaped with
// [regexp.QuoteMeta] so keywords containing punctuation never become
// accidental regex syntax.
package overlay

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

// Token is one span of a tokenized lyric line. Keyword is nil for plain
// text spans.
type Token struct {
	// Text is the span's verbatim text, casing preserved from the line.
	Text string `json:"text"`

	// Keyword points at the matched keyword record, or nil for plain text.
	Keyword *lyrics.Keyword `json:"keyword,omitempty"`
}

// IsKeyword reports whether the token is an interactive keyword span.
func (t Token) IsKeyword() bool { return t.Keyword != nil }

// Tokenizer splits lyric lines against a fixed keyword set. Build one per
// mission with [NewTokenizer]; it is read-only after construction and safe
// for concurrent use.
type Tokenizer struct {
	pattern  *regexp.Regexp
	keywords map[string]*lyrics.Keyword // lowercased surface → record
}

// NewTokenizer compiles the alternation for the given keyword set. Keywords
// with empty surfaces are skipped; an empty (or fully skipped) set yields a
// tokenizer that returns every line as a single plain span.
func NewTokenizer(keywords []lyrics.Keyword) *Tokenizer {
	tk := &Tokenizer{keywords: make(map[string]*lyrics.Keyword, len(keywords))}

	surfaces := make([]string, 0, len(keywords))
	for i := range keywords {
		w := strings.TrimSpace(keywords[i].Word)
		if w == "" {
			continue
		}
		lower := strings.ToLower(w)
		if _, dup := tk.keywords[lower]; dup {
			continue
		}
		tk.keywords[lower] = &keywords[i]
		surfaces = append(surfaces, w)
	}
	if len(surfaces) == 0 {
		return tk
	}

	// Longest surface first so a shorter keyword can never match inside a
	// longer one that shares a substring.
	sort.Slice(surfaces, func(i, j int) bool {
		if len(surfaces[i]) != len(surfaces[j]) {
			return len(surfaces[i]) > len(surfaces[j])
		}
		return surfaces[i] < surfaces[j]
	})

	escaped := make([]string, len(surfaces))
	for i, s := range surfaces {
		escaped[i] = regexp.QuoteMeta(s)
	}
	tk.pattern = regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
	return tk
}

// Tokenize splits line text into an ordered sequence of plain and keyword
// spans. The concatenation of all span texts always equals the input.
func (tk *Tokenizer) Tokenize(line string) []Token {
	if tk.pattern == nil || line == "" {
		return []Token{{Text: line}}
	}

	var tokens []Token
	last := 0
	for _, loc := range tk.pattern.FindAllStringIndex(line, -1) {
		if loc[0] > last {
			tokens = append(tokens, Token{Text: line[last:loc[0]]})
		}
		matched := line[loc[0]:loc[1]]
		tokens = append(tokens, Token{
			Text:    matched,
			Keyword: tk.keywords[strings.ToLower(matched)],
		})
		last = loc[1]
	}
	if last < len(line) {
		tokens = append(tokens, Token{Text: line[last:]})
	}
	if len(tokens) == 0 {
		return []Token{{Text: line}}
	}
	return tokens
}

// Dispatcher routes keyword activations: it pauses the player if playing and
// notifies the selection callback. It never mutates the lyric or playback
// model itself.
type Dispatcher struct {
	pause    func() error
	playing  func() bool
	onSelect func(lyrics.Keyword)
}

// NewDispatcher wires a dispatcher to its collaborators. Any of the
// functions may be nil: a nil pause/playing pair means no player is attached
// (activation still notifies), a nil onSelect drops the notification.
func NewDispatcher(playing func() bool, pause func() error, onSelect func(lyrics.Keyword)) *Dispatcher {
	return &Dispatcher{pause: pause, playing: playing, onSelect: onSelect}
}

// Activate handles a click on a keyword span. Pause failures are ignored —
// the selection event matters more than the transport hiccup.
func (d *Dispatcher) Activate(kw lyrics.Keyword) {
	if d.playing != nil && d.pause != nil && d.playing() {
		_ = d.pause()
	}
	if d.onSelect != nil {
		d.onSelect(kw)
	}
}
