package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clearfolio/suitability/internal/domain"
	"github.com/clearfolio/suitability/internal/modules/deepdive"
	"github.com/clearfolio/suitability/internal/reports"
)

// analyzeRequest is the POST /api/analyze body.
type analyzeRequest struct {
	Profile   domain.ClientProfile `json:"profile"`
	Portfolio domain.Portfolio     `json:"portfolio"`
}

// compareRequest is the POST /api/compare body.
type compareRequest struct {
	Profile    domain.ClientProfile `json:"profile"`
	Portfolios []domain.Portfolio   `json:"portfolios"`
}

// askRequest is the POST /api/deepdive/{sessionID}/ask body.
type askRequest struct {
	Question string `json:"question"`
}

// handleAnalyze runs the full pipeline for one portfolio.
// POST /api/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	artifact, err := s.runner.Analyze(r.Context(), &req.Profile, &req.Portfolio)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, artifact)
}

// handleCompare analyzes candidate portfolios for one client and ranks them.
// POST /api/compare
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	result, err := s.comparator.Compare(r.Context(), &req.Profile, req.Portfolios)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleDeepDiveStart opens an equity deep-dive session from a completed run.
// POST /api/deepdive
func (s *Server) handleDeepDiveStart(w http.ResponseWriter, r *http.Request) {
	var req domain.EquityDeepDiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	report, err := s.deepDive.Start(r.Context(), &req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleDeepDiveAsk answers a follow-up question on an active session.
// POST /api/deepdive/{sessionID}/ask
func (s *Server) handleDeepDiveAsk(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	report, err := s.deepDive.Ask(r.Context(), sessionID, req.Question)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleGetReport loads one persisted artifact by run ID.
// GET /api/reports/{runID}
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	artifact, err := s.reports.Get(r.Context(), runID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, artifact)
}

// handleListReports lists recent run summaries, optionally filtered by
// client_id, newest first.
// GET /api/reports?client_id=&limit=
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	summaries, err := s.reports.List(r.Context(), r.URL.Query().Get("client_id"), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if summaries == nil {
		summaries = []reports.Summary{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reports": summaries})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: validation
// failures are 400, unknown IDs 404, pipeline failures 502, the rest 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var pipelineErr *domain.PipelineFailure

	switch {
	case errors.As(err, &validationErr):
		s.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, reports.ErrNotFound), errors.Is(err, deepdive.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &pipelineErr):
		s.writeError(w, http.StatusBadGateway, pipelineErr.Error())
	default:
		s.log.Error().Err(err).Msg("Request failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
