// Package lesson defines the lesson generation boundary: turning raw pasted
// lyric text into study material (keywords, challenges, quiz items).
//
// The [Generator] interface abstracts over the LLM backend; see the anyllm
// and openai subpackages for real implementations and mock for tests.
package lesson

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/hanbyeol/lyrico/pkg/lyrics"
)

// Challenge is a single speaking or fill-in exercise derived from a lyric line.
type Challenge struct {
	// Prompt is the exercise text shown to the learner, with the target
	// expression blanked out or highlighted.
	Prompt string `json:"prompt"`

	// Answer is the expected expression.
	Answer string `json:"answer"`
}

// QuizItem is one multiple-choice vocabulary question.
type QuizItem struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices"`

	// Answer is the index into Choices of the correct option.
	Answer int `json:"answer"`
}

// Lesson is the study material generated from one song's lyric text.
type Lesson struct {
	Keywords   []lyrics.Keyword `json:"keywords"`
	Challenges []Challenge      `json:"challenges"`
	Quiz       []QuizItem       `json:"quiz"`
}

// Generator produces a lesson from raw pasted lyric text.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
type Generator interface {
	GenerateLesson(ctx context.Context, rawText string) (*Lesson, error)
}

// DecodeLesson parses an LLM response into a [Lesson]. Models frequently wrap
// JSON in markdown code fences or lead with prose, so the decoder extracts
// the outermost JSON object before unmarshalling.
func DecodeLesson(raw string) (*Lesson, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("lesson: no JSON object in response")
	}

	var l Lesson
	if err := json.Unmarshal([]byte(payload), &l); err != nil {
		return nil, fmt.Errorf("lesson: decode response: %w", err)
	}
	if len(l.Keywords) == 0 {
		return nil, fmt.Errorf("lesson: response contains no keywords")
	}

	l.Keywords = dedupeKeywords(l.Keywords)
	BackfillPhonetics(l.Keywords)
	return &l, nil
}

// extractJSON returns the outermost {...} object in s, stripping markdown
// code fences first. Returns "" when no braces are present.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// BackfillPhonetics fills each keyword's empty Phonetic field with a Double
// Metaphone rendering of the surface. Keywords that already carry a phonetic
// hint from the model are left alone.
func BackfillPhonetics(kws []lyrics.Keyword) {
	for i := range kws {
		if kws[i].Phonetic != "" || kws[i].Word == "" {
			continue
		}
		primary, _ := matchr.DoubleMetaphone(kws[i].Word)
		kws[i].Phonetic = strings.ToLower(primary)
	}
}

// dedupeKeywords drops keywords whose surface is a near-duplicate of an
// earlier one (case variants, stray punctuation). The first occurrence wins
// since the model lists keywords in order of salience.
func dedupeKeywords(kws []lyrics.Keyword) []lyrics.Keyword {
	const threshold = 0.96

	out := kws[:0]
	for _, kw := range kws {
		surface := strings.ToLower(strings.TrimSpace(kw.Word))
		if surface == "" {
			continue
		}
		dup := false
		for _, kept := range out {
			if matchr.JaroWinkler(surface, strings.ToLower(kept.Word), false) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, kw)
		}
	}
	return out
}
