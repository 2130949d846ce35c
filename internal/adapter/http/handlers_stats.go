package adapthttp

import (
	"net/http"

	"vitalstats/internal/app"
	"vitalstats/internal/domain"
)

type statsRequest struct {
	Date        string             `json:"date"`
	Vitals      domain.Vitals      `json:"vitals"`
	ExerciseLog domain.ExerciseLog `json:"exerciseLog"`
}

func (s *Server) handleSubmitStats(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := s.stats.Submit(r.Context(), userFromContext(r).ID, app.StatsInput{
		Date:        req.Date,
		Vitals:      req.Vitals,
		ExerciseLog: req.ExerciseLog,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	rec, err := s.stats.GetByDay(r.Context(), userFromContext(r).ID, r.PathValue("date"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStatsRange(w http.ResponseWriter, r *http.Request) {
	recs, err := s.stats.GetByRange(r.Context(), userFromContext(r).ID, r.PathValue("start"), r.PathValue("end"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleUpdateStats replaces the vitals and exercise log of an existing day.
// The day comes from the path; a date in the body is ignored.
func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request) {
	var req statsRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := s.stats.Update(r.Context(), userFromContext(r).ID, app.StatsInput{
		Date:        r.PathValue("date"),
		Vitals:      req.Vitals,
		ExerciseLog: req.ExerciseLog,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
