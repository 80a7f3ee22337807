// Package api exposes the HTTP and websocket surface of Lyrico: mission
// catalogue reads, lesson generation, live session controls (sync, offset,
// producer workflow), the learner ledger, and the player bridge socket.
//
// Routing uses the stdlib mux with method-qualified patterns. Every response
// body is JSON. Error bodies carry a single "error" field; persistence or
// upstream failures map to 502, domain conflicts to 409, unknown resources
// to 404. State-machine no-ops (producer controls outside a producer
// session, offset steps while recording) return 200 with the unchanged
// session state.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanbyeol/lyrico/internal/gamify"
	"github.com/hanbyeol/lyrico/internal/health"
	"github.com/hanbyeol/lyrico/internal/lesson"
	"github.com/hanbyeol/lyrico/internal/mission"
	"github.com/hanbyeol/lyrico/internal/observe"
	"github.com/hanbyeol/lyrico/internal/session"
)

// Config configures a [Server]. Manager and Store are required; everything
// else degrades gracefully when absent.
type Config struct {
	// Manager owns the live playback sessions. Required.
	Manager *session.Manager

	// Store backs mission catalogue reads and direct offset writes.
	// Required.
	Store mission.Store

	// Ledger serves the learner progress endpoints. May be nil, in which
	// case those routes return 503.
	Ledger *gamify.Ledger

	// Generator produces lessons for the lesson endpoint. May be nil, in
	// which case the route returns 503.
	Generator lesson.Generator

	// GeneratorName labels lesson metrics with the configured provider.
	GeneratorName string

	// CardPool is the full photocard set drawn from by the gacha endpoint.
	CardPool []string

	// Metrics receives HTTP and lesson telemetry. May be nil in tests.
	Metrics *observe.Metrics

	// Health serves the liveness and readiness probes. May be nil.
	Health *health.Handler
}

// Server is the HTTP handler set. Construct with [New], mount via
// [Server.Routes].
type Server struct {
	mgr     *session.Manager
	store   mission.Store
	ledger  *gamify.Ledger
	gen     lesson.Generator
	genName string
	cards   []string
	metrics *observe.Metrics
	health  *health.Handler
}

// New validates cfg and creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("api: session manager is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("api: mission store is required")
	}
	genName := cfg.GeneratorName
	if genName == "" {
		genName = "unknown"
	}
	return &Server{
		mgr:     cfg.Manager,
		store:   cfg.Store,
		ledger:  cfg.Ledger,
		gen:     cfg.Generator,
		genName: genName,
		cards:   cfg.CardPool,
		metrics: cfg.Metrics,
		health:  cfg.Health,
	}, nil
}

// Routes builds the full route table. The returned handler is wrapped in the
// tracing middleware when metrics are configured.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}

	mux.HandleFunc("GET /api/missions", s.handleListMissions)
	mux.HandleFunc("GET /api/missions/{id}", s.handleGetMission)
	mux.HandleFunc("POST /api/missions/{id}/offset", s.handleSetOffset)
	mux.HandleFunc("POST /api/missions/{id}/lesson", s.handleLesson)

	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionState)
	mux.HandleFunc("GET /api/sessions/{id}/lines", s.handleSessionLines)
	mux.HandleFunc("GET /api/sessions/{id}/lines/{index}/tokens", s.handleTokenizeLine)
	mux.HandleFunc("POST /api/sessions/{id}/seek", s.handleSeek)
	mux.HandleFunc("POST /api/sessions/{id}/offset/step", s.handleOffsetStep)
	mux.HandleFunc("POST /api/sessions/{id}/keyword", s.handleKeyword)
	mux.HandleFunc("POST /api/sessions/{id}/producer/enter", s.handleProducerEnter)
	mux.HandleFunc("POST /api/sessions/{id}/producer/hit", s.handleProducerHit)
	mux.HandleFunc("POST /api/sessions/{id}/producer/undo", s.handleProducerUndo)
	mux.HandleFunc("POST /api/sessions/{id}/producer/commit", s.handleProducerCommit)
	mux.HandleFunc("POST /api/sessions/{id}/producer/cancel", s.handleProducerCancel)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)

	mux.HandleFunc("GET /api/learners/{id}/progress", s.handleProgress)
	mux.HandleFunc("POST /api/learners/{id}/award", s.handleAward)
	mux.HandleFunc("POST /api/learners/{id}/draw", s.handleDraw)

	mux.HandleFunc("GET /ws/player/{id}", s.handlePlayerSocket)

	if s.metrics != nil {
		return observe.Middleware(s.metrics)(mux)
	}
	return mux
}

// openSession resolves the live session for a mission ID, creating it on
// first use. Writes the error response itself on failure.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	sess, err := s.mgr.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, mission.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown mission %q", id)
		} else {
			writeError(w, http.StatusBadGateway, "open session: %v", err)
		}
		return nil, false
	}
	return sess, true
}

// writeJSON writes v as a JSON response body. Encode failures are logged,
// not surfaced; the status line has already been sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: encode response", "err", err)
	}
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// readJSON decodes the request body into v, rejecting unknown fields.
// Writes a 400 itself on failure.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: %v", err)
		return false
	}
	return true
}
