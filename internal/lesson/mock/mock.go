// Package mock provides a test double for the lesson.Generator interface.
//
// Use Generator in unit tests to feed controlled lessons without a live LLM
// backend. All fields are safe to set before calling any method; mutating
// them during a concurrent call is the caller's responsibility.
//
// Example:
//
//	g := &mock.Generator{
//	    GenerateResult: &lesson.Lesson{Keywords: []lyrics.Keyword{{Word: "queencard"}}},
//	}
//	l, err := g.GenerateLesson(ctx, text)
package mock

import (
	"context"
	"sync"

	"github.com/hanbyeol/lyrico/internal/lesson"
)

// GenerateCall records a single invocation of GenerateLesson.
type GenerateCall struct {
	// Ctx is the context passed to GenerateLesson.
	Ctx context.Context
	// RawText is the lyric text passed to GenerateLesson.
	RawText string
}

// Generator is a mock implementation of lesson.Generator.
// Zero values cause GenerateLesson to return (nil, nil); set GenerateError
// to inject a failure.
type Generator struct {
	mu sync.Mutex

	// GenerateResult is returned by GenerateLesson. May be nil.
	GenerateResult *lesson.Lesson

	// GenerateError, if non-nil, is returned instead of GenerateResult.
	GenerateError error

	// GenerateCalls records every invocation of GenerateLesson in order.
	GenerateCalls []GenerateCall
}

var _ lesson.Generator = (*Generator)(nil)

// GenerateLesson implements lesson.Generator.
func (g *Generator) GenerateLesson(ctx context.Context, rawText string) (*lesson.Lesson, error) {
	g.mu.Lock()
	g.GenerateCalls = append(g.GenerateCalls, GenerateCall{Ctx: ctx, RawText: rawText})
	result, err := g.GenerateResult, g.GenerateError
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return result, nil
}
