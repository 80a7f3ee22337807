package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"

	"github.com/hanbyeol/lyrico/internal/player/wsbridge"
)

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleSessionLines(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lines": sess.Lines()})
}

func (s *Server) handleTokenizeLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad line index %q", r.PathValue("index"))
		return
	}
	if index < 0 || index >= len(sess.Lines()) {
		writeError(w, http.StatusNotFound, "line %d out of range", index)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": sess.TokenizeLine(index)})
}

// handleSeek resolves a clicked line to a player seek, compensated by the
// session offset. With no player attached or in producer mode this is a
// no-op and still answers 200.
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Line int `json:"line"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	sess.ClickLine(req.Line)
	writeJSON(w, http.StatusOK, sess.State())
}

// handleOffsetStep nudges the session offset by whole half-second steps.
// With save set the new value is also persisted; a failed persist keeps the
// in-memory offset and answers 502.
func (s *Server) handleOffsetStep(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Steps int  `json:"steps"`
		Save  bool `json:"save"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	sess.AdjustOffset(req.Steps)
	if req.Save {
		if err := sess.SaveOffset(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, "persist offset: %v", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleKeyword(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var req struct {
		Word string `json:"word"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	activated := sess.ActivateKeyword(req.Word)
	writeJSON(w, http.StatusOK, map[string]any{
		"activated": activated,
		"state":     sess.State(),
	})
}

func (s *Server) handleProducerEnter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	sess.EnterProducer()
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleProducerHit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	sess.ProducerHit()
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleProducerUndo(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	sess.ProducerUndo()
	writeJSON(w, http.StatusOK, sess.State())
}

// handleProducerCommit interpolates and persists the stamped sequence. On a
// store failure the producer session stays live so the takes are not lost,
// and the response is 502.
func (s *Server) handleProducerCommit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	if err := sess.ProducerCommit(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "commit: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleProducerCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	sess.ProducerCancel()
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.mgr.Close(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handlePlayerSocket upgrades to a websocket, attaches the browser player to
// the session, and holds the connection until either side hangs up.
func (s *Server) handlePlayerSocket(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("player socket accept failed", "mission_id", id, "err", err)
		return
	}

	bridge := wsbridge.New(r.Context(), conn)
	sess.AttachPlayer(bridge)
	if s.metrics != nil {
		s.metrics.ConnectedPlayers.Add(r.Context(), 1)
	}
	slog.Info("player connected", "mission_id", id)

	<-bridge.Done()

	// A reconnecting browser may already have attached a new bridge.
	sess.DetachPlayer(bridge)
	if s.metrics != nil {
		s.metrics.ConnectedPlayers.Add(r.Context(), -1)
	}
	_ = bridge.Close()
	slog.Info("player disconnected", "mission_id", id)
}
