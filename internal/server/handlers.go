package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akaramanis/signalbridge/internal/store"
)

// signalsResponse is the poll response: the pending set plus a timestamp
// the consumer can use to detect a stalled feed.
type signalsResponse struct {
	Signals    []store.Entry `json:"signals"`
	Count      int           `json:"count"`
	LastUpdate time.Time     `json:"last_update"`
}

type ackResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleGetSignals serves GET /signals?symbol=XAUUSD. Polling is free of
// side effects: signals stay pending until explicitly acknowledged.
func (s *Server) handleGetSignals(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	entries := s.store.ListPending(symbol)
	if entries == nil {
		entries = []store.Entry{}
	}

	s.writeJSON(w, http.StatusOK, signalsResponse{
		Signals:    entries,
		Count:      len(entries),
		LastUpdate: time.Now().UTC(),
	})
}

// handleAcknowledge serves POST /signals/{messageID}/ack.
func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")

	if !s.store.Acknowledge(messageID) {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "signal not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, ackResponse{Status: "acknowledged", MessageID: messageID})
}

// handleStats serves GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Stats())
}

// handleHealth serves GET /health. Degrades to 503 when the archive
// database stops answering; the store itself is in-memory and cannot fail.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.QuickCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("Health check failed")
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":    "unhealthy",
				"timestamp": time.Now().UTC(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}
