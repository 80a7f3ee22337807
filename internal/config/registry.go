package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hanbyeol/lyrico/internal/lesson"
)

// ErrProviderNotRegistered is returned by [Registry.CreateGenerator] when no
// factory has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps lesson provider names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]func(ProviderEntry) (lesson.Generator, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]func(ProviderEntry) (lesson.Generator, error)),
	}
}

// RegisterGenerator registers a lesson generator factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterGenerator(name string, factory func(ProviderEntry) (lesson.Generator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[name] = factory
}

// CreateGenerator instantiates a lesson generator using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateGenerator(entry ProviderEntry) (lesson.Generator, error) {
	r.mu.RLock()
	factory, ok := r.generators[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: lesson/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
