package overlay

import (
	"strings"
	"testing"

	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

func kws(words ...string) []lyrics.Keyword {
	out := make([]lyrics.Keyword, len(words))
	for i, w := range words {
		out[i] = lyrics.Keyword{Word: w, Definition: "def of " + w}
	}
	return out
}

// joined reconstructs the original line from a token stream.
func joined(tokens []Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteString(tok.Text)
	}
	return b.String()
}

func TestTokenize_LongestMatchWins(t *testing.T) {
	tk := NewTokenizer(kws("Queencard", "card"))

	tokens := tk.Tokenize("I am a Queencard")

	var matched []string
	for _, tok := range tokens {
		if tok.IsKeyword() {
			matched = append(matched, tok.Text)
		}
	}
	if len(matched) != 1 || matched[0] != "Queencard" {
		t.Fatalf("matched %v, want exactly [Queencard]", matched)
	}
	if joined(tokens) != "I am a Queencard" {
		t.Errorf("tokens do not reassemble the line: %q", joined(tokens))
	}
}

func TestTokenize_CaseInsensitiveWordBoundary(t *testing.T) {
	tk := NewTokenizer(kws("run"))

	t.Run("case-insensitive match keeps original casing", func(t *testing.T) {
		tokens := tk.Tokenize("RUN with me")
		if !tokens[0].IsKeyword() || tokens[0].Text != "RUN" {
			t.Errorf("first token = %+v, want keyword span \"RUN\"", tokens[0])
		}
		if tokens[0].Keyword.Word != "run" {
			t.Errorf("keyword ref = %q, want \"run\"", tokens[0].Keyword.Word)
		}
	})

	t.Run("no partial-substring match", func(t *testing.T) {
		tokens := tk.Tokenize("on the runway")
		for _, tok := range tokens {
			if tok.IsKeyword() {
				t.Errorf("unexpected keyword match %q inside \"runway\"", tok.Text)
			}
		}
	})
}

func TestTokenize_EmptyKeywordSet(t *testing.T) {
	tk := NewTokenizer(nil)

	tokens := tk.Tokenize("some lyric line")
	if len(tokens) != 1 || tokens[0].IsKeyword() || tokens[0].Text != "some lyric line" {
		t.Errorf("tokens = %+v, want one plain span", tokens)
	}
}

func TestTokenize_MetacharactersAreEscaped(t *testing.T) {
	// A keyword with regex metacharacters must match literally, not as a
	// pattern.
	tk := NewTokenizer(kws("a+b"))

	tokens := tk.Tokenize("what is a+b here")
	found := false
	for _, tok := range tokens {
		if tok.IsKeyword() && tok.Text == "a+b" {
			found = true
		}
	}
	if !found {
		t.Errorf("literal keyword \"a+b\" not matched: %+v", tokens)
	}

	// "aab" would match the unescaped pattern /a+b/; it must not match.
	for _, tok := range tk.Tokenize("aab") {
		if tok.IsKeyword() {
			t.Errorf("unescaped-regex match on %q", tok.Text)
		}
	}
}

func TestTokenize_MultipleKeywordsInOneLine(t *testing.T) {
	tk := NewTokenizer(kws("tornado", "takeover"))

	tokens := tk.Tokenize("tornado takeover tonight")

	var matched []string
	for _, tok := range tokens {
		if tok.IsKeyword() {
			matched = append(matched, tok.Text)
		}
	}
	if len(matched) != 2 {
		t.Fatalf("matched %v, want 2 keywords", matched)
	}
	if joined(tokens) != "tornado takeover tonight" {
		t.Errorf("tokens do not reassemble the line: %q", joined(tokens))
	}
}

func TestDispatcher_Activate(t *testing.T) {
	t.Run("pauses while playing and notifies", func(t *testing.T) {
		paused := 0
		var selected []lyrics.Keyword

		d := NewDispatcher(
			func() bool { return true },
			func() error { paused++; return nil },
			func(kw lyrics.Keyword) { selected = append(selected, kw) },
		)

		d.Activate(lyrics.Keyword{Word: "tornado"})

		if paused != 1 {
			t.Errorf("pause called %d times, want 1", paused)
		}
		if len(selected) != 1 || selected[0].Word != "tornado" {
			t.Errorf("selected = %+v, want [tornado]", selected)
		}
	})

	t.Run("does not pause when already paused", func(t *testing.T) {
		paused := 0
		d := NewDispatcher(
			func() bool { return false },
			func() error { paused++; return nil },
			func(lyrics.Keyword) {},
		)

		d.Activate(lyrics.Keyword{Word: "x"})

		if paused != 0 {
			t.Errorf("pause called %d times, want 0", paused)
		}
	})

	t.Run("no player attached is a no-op pause", func(t *testing.T) {
		notified := false
		d := NewDispatcher(nil, nil, func(lyrics.Keyword) { notified = true })

		d.Activate(lyrics.Keyword{Word: "x"})

		if !notified {
			t.Error("selection not notified without a player")
		}
	})
}
