// Package api serves a computed analysis run over HTTP as read-only JSON.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"neurotune/domain/grating"
	"neurotune/internal"
)

// Server exposes one assembled metrics table and the session's tuning axes.
// All handlers are read-only; the table is immutable once computed.
type Server struct {
	router *chi.Mux
	table  *grating.MetricsTable
	axes   map[grating.Dimension]grating.Axis
	log    *internal.Logger
}

// NewServer creates a server over a computed metrics table
func NewServer(table *grating.MetricsTable, axes map[grating.Dimension]grating.Axis) *Server {
	s := &Server{
		router: chi.NewRouter(),
		table:  table,
		axes:   axes,
		log:    internal.DefaultLogger,
	}
	s.routes()
	return s
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/metrics/{unitID}", s.handleUnitMetrics)
		r.Get("/axes", s.handleAxes)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"run_id": s.table.RunID.String(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.table)
}

func (s *Server) handleUnitMetrics(w http.ResponseWriter, r *http.Request) {
	unitID, err := strconv.ParseInt(chi.URLParam(r, "unitID"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "unit id must be an integer")
		return
	}
	row, ok := s.table.Row(grating.UnitID(unitID))
	if !ok {
		if reason, skipped := s.table.Skipped[grating.UnitID(unitID)]; skipped {
			s.respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"unit_id": chi.URLParam(r, "unitID"),
				"skipped": reason,
			})
			return
		}
		s.respondError(w, http.StatusNotFound, "unit not in this run")
		return
	}
	s.respondJSON(w, http.StatusOK, row)
}

func (s *Server) handleAxes(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.axes)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("encoding response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
