package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/hanbyeol/lyrico/internal/gamify"
	"github.com/hanbyeol/lyrico/internal/mission"
	"github.com/hanbyeol/lyrico/internal/observe"
)

func (s *Server) handleListMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := s.store.ListMissions(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "list missions: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"missions": missions})
}

func (s *Server) handleGetMission(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.store.GetMission(r.Context(), id)
	if err != nil {
		if errors.Is(err, mission.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown mission %q", id)
			return
		}
		writeError(w, http.StatusBadGateway, "get mission: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleSetOffset writes a mission's stored sync offset directly. A session
// that is already open keeps its in-memory offset until reopened; the live
// path is the session offset/step route.
func (s *Server) handleSetOffset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Offset float64 `json:"offset"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.store.UpdateOffset(r.Context(), id, req.Offset); err != nil {
		if errors.Is(err, mission.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown mission %q", id)
			return
		}
		if s.metrics != nil {
			s.metrics.RecordPersistenceFailure(r.Context(), "update_offset")
		}
		writeError(w, http.StatusBadGateway, "persist offset: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "offset": req.Offset})
}

// handleLesson runs the configured generator over the posted lyric text, or
// over the mission's own lines when the body carries no text.
func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	if s.gen == nil {
		writeError(w, http.StatusServiceUnavailable, "no lesson generator configured")
		return
	}
	id := r.PathValue("id")
	var req struct {
		Text string `json:"text"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	text := req.Text
	if strings.TrimSpace(text) == "" {
		m, err := s.store.GetMission(r.Context(), id)
		if err != nil {
			if errors.Is(err, mission.ErrNotFound) {
				writeError(w, http.StatusNotFound, "unknown mission %q", id)
				return
			}
			writeError(w, http.StatusBadGateway, "get mission: %v", err)
			return
		}
		var b strings.Builder
		for _, ln := range m.Lines {
			b.WriteString(ln.Content)
			b.WriteByte('\n')
		}
		text = b.String()
	}

	ctx, span := observe.StartMissionSpan(r.Context(), "lesson.generate", id)
	defer span.End()

	start := time.Now()
	les, err := s.gen.GenerateLesson(ctx, text)
	if s.metrics != nil {
		s.metrics.LessonDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(observe.Attr("provider", s.genName)))
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordLessonRequest(ctx, s.genName, "error")
		}
		writeError(w, http.StatusBadGateway, "generate lesson: %v", err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordLessonRequest(ctx, s.genName, "ok")
	}
	observe.Logger(ctx).Info("lesson generated",
		"mission_id", id,
		"provider", s.genName,
		"keywords", len(les.Keywords),
		"duration", time.Since(start))
	writeJSON(w, http.StatusOK, les)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "no ledger configured")
		return
	}
	prog, err := s.ledger.Progress(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadGateway, "load progress: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"progress": prog,
		"rank":     gamify.RankFor(prog.XP),
	})
}

func (s *Server) handleAward(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "no ledger configured")
		return
	}
	var req struct {
		Activity string `json:"activity"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	res, err := s.ledger.Award(r.Context(), r.PathValue("id"), gamify.Activity(req.Activity))
	if err != nil {
		if errors.Is(err, gamify.ErrUnknownActivity) {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		if s.metrics != nil {
			s.metrics.RecordPersistenceFailure(r.Context(), "put_progress")
		}
		writeError(w, http.StatusBadGateway, "award: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "no ledger configured")
		return
	}
	learnerID := r.PathValue("id")
	card, err := s.ledger.Draw(r.Context(), learnerID, s.cards)
	if err != nil {
		switch {
		case errors.Is(err, gamify.ErrNoTickets), errors.Is(err, gamify.ErrPoolExhausted):
			writeError(w, http.StatusConflict, "%v", err)
		default:
			if s.metrics != nil {
				s.metrics.RecordPersistenceFailure(r.Context(), "put_progress")
			}
			writeError(w, http.StatusBadGateway, "draw: %v", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"card": card})
}
