package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/tradepulse/internal/analytics"
	"github.com/aristath/tradepulse/internal/domain"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ledgerDB.QuickCheck(r.Context()); err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetAnalytics handles GET /api/analytics
func (s *Server) handleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.orch.Snapshot())
}

// handleRecompute handles POST /api/analytics/recompute
func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	if err := s.tradeService.Recompute(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// handleInvalidateCache handles DELETE /api/analytics/cache
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	s.orch.InvalidateCache()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// handleGetSettings handles GET /api/analytics/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.tradeService.Settings())
}

// handleUpdateSettings handles PUT /api/analytics/settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings analytics.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}
	if err := s.tradeService.UpdateSettings(settings); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.tradeService.Settings())
}

// handleListTrades handles GET /api/trades
func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	list, err := s.tradeService.List()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []domain.Trade{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"trades": list,
		"count":  len(list),
	})
}

// handleImportTrades handles POST /api/trades
func (s *Server) handleImportTrades(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Trades []domain.Trade `json:"trades"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid trades payload: "+err.Error())
		return
	}
	if len(payload.Trades) == 0 {
		s.respondError(w, http.StatusBadRequest, "no trades in payload")
		return
	}

	ids, err := s.tradeService.Import(payload.Trades)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"imported": len(ids),
		"ids":      ids,
	})
}

// handleClearTrades handles DELETE /api/trades
func (s *Server) handleClearTrades(w http.ResponseWriter, r *http.Request) {
	if err := s.tradeService.Clear(); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleDeleteTrade handles DELETE /api/trades/{id}
func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "missing trade id")
		return
	}
	if err := s.tradeService.Delete(id); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}
