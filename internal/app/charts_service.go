package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"vitalstats/internal/domain"
)

// MaxChartDays caps the number of days GetDaily returns.
const MaxChartDays = 366

// ChartsService encapsulates chart data retrieval use cases.
type ChartsService struct {
	repo    domain.StatsRepository
	timeout time.Duration
	now     func() time.Time
}

// NewChartsService creates a ChartsService backed by the given repository.
func NewChartsService(repo domain.StatsRepository, timeout time.Duration) *ChartsService {
	return &ChartsService{repo: repo, timeout: timeout, now: time.Now}
}

// DayPoint is a single data point returned by GetDaily. Value is nil for
// days without a record or without the metric.
type DayPoint struct {
	Day   string   `json:"day"`
	Value *float64 `json:"value"`
	Unit  string   `json:"unit,omitempty"`
}

type extractor func(*domain.HealthStatsRecord) *float64

func floatOf(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func intOf(p *int) *float64 {
	if p == nil {
		return nil
	}
	v := float64(*p)
	return &v
}

var metrics = map[string]extractor{
	"weight":            func(r *domain.HealthStatsRecord) *float64 { return floatOf(r.Vitals.Weight) },
	"bodyTemperature":   func(r *domain.HealthStatsRecord) *float64 { return floatOf(r.Vitals.BodyTemperature) },
	"pulseRate":         func(r *domain.HealthStatsRecord) *float64 { return intOf(r.Vitals.PulseRate) },
	"respirationRate":   func(r *domain.HealthStatsRecord) *float64 { return intOf(r.Vitals.RespirationRate) },
	"bloodOxygen":       func(r *domain.HealthStatsRecord) *float64 { return floatOf(r.Vitals.BloodOxygen) },
	"bloodGlucoseLevel": func(r *domain.HealthStatsRecord) *float64 { return floatOf(r.Vitals.BloodGlucoseLevel) },
	"walking":           func(r *domain.HealthStatsRecord) *float64 { return floatOf(r.ExerciseLog.Walking) },
	"jogging":           func(r *domain.HealthStatsRecord) *float64 { return floatOf(r.ExerciseLog.Jogging) },
	"running":           func(r *domain.HealthStatsRecord) *float64 { return floatOf(r.ExerciseLog.Running) },
	"cycling":           func(r *domain.HealthStatsRecord) *float64 { return floatOf(r.ExerciseLog.Cycling) },
	"ropeSkipping":      func(r *domain.HealthStatsRecord) *float64 { return intOf(r.ExerciseLog.RopeSkipping) },
	"yoga":              func(r *domain.HealthStatsRecord) *float64 { return intOf(r.ExerciseLog.Yoga) },
	"dance":             func(r *domain.HealthStatsRecord) *float64 { return intOf(r.ExerciseLog.Dance) },
}

// Metrics returns the chartable metric names in sorted order.
func Metrics() []string {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetDaily returns one point per UTC day for the last days days ending today,
// oldest first. Weight values are converted to unit ("kg" or "lb"); unit is
// ignored for other metrics.
func (s *ChartsService) GetDaily(ctx context.Context, userID string, days int, metric, unit string) ([]DayPoint, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	extract, ok := metrics[metric]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidInput, metric)
	}
	if metric == "weight" {
		if unit == "" {
			unit = "kg"
		}
		if unit != "kg" && unit != "lb" {
			return nil, fmt.Errorf("%w: unit must be \"kg\" or \"lb\"", domain.ErrInvalidInput)
		}
	} else {
		unit = ""
	}
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", domain.ErrInvalidInput)
	}
	if days > MaxChartDays {
		days = MaxChartDays
	}

	today := domain.DayOf(s.now())
	first := domain.DayOf(today.Start.AddDate(0, 0, -(days - 1)))

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	recs, err := s.repo.FindRange(sctx, userID, first, today)
	if err != nil {
		return nil, storeError("charts", err)
	}
	byDay := make(map[string]*domain.HealthStatsRecord, len(recs))
	for i := range recs {
		byDay[domain.DayOf(recs[i].Date).String()] = &recs[i]
	}

	points := make([]DayPoint, 0, days)
	for d := first; !d.Start.After(today.Start); d = d.Next() {
		p := DayPoint{Day: d.String(), Unit: unit}
		if rec, ok := byDay[p.Day]; ok {
			p.Value = extract(rec)
			if p.Value != nil && unit == "lb" {
				v := domain.ConvertWeight(*p.Value, "kg", "lb")
				p.Value = &v
			}
		}
		points = append(points, p)
	}
	return points, nil
}
