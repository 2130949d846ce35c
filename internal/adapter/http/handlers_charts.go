package adapthttp

import (
	"net/http"
	"time"

	"vitalstats/internal/domain"
)

func (s *Server) handleChartsDaily(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	days := intQuery(r, "days", 90)
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "weight"
	}
	unit := r.URL.Query().Get("unit")
	if unit == "" && metric == "weight" {
		unit = "kg"
	}

	points, err := s.charts.GetDaily(r.Context(), user.ID, days, metric, unit)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":   len(points),
		"metric": metric,
		"unit":   unit,
		"today":  domain.DayOf(time.Now()).String(),
		"items":  points,
	})
}
