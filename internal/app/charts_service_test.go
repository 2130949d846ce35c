package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vitalstats/internal/app"
	"vitalstats/internal/domain"
)

func TestGetDaily_BadInput(t *testing.T) {
	svc := app.NewChartsService(&mockStatsRepo{}, time.Second)
	tests := []struct {
		name   string
		days   int
		metric string
		unit   string
	}{
		{"bad unit", 7, "weight", "stones"},
		{"unknown metric", 7, "mood", ""},
		{"zero days", 0, "weight", "kg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetDaily(context.Background(), "u1", tt.days, tt.metric, tt.unit)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestGetDaily_Success(t *testing.T) {
	today := domain.DayOf(time.Now())
	repo := &mockStatsRepo{
		findRangeFn: func(_ context.Context, _ string, from, to domain.Day) ([]domain.HealthStatsRecord, error) {
			if to.String() != today.String() {
				t.Errorf("expected range to end today, got %s", to)
			}
			if want := domain.DayOf(today.Start.AddDate(0, 0, -2)).String(); from.String() != want {
				t.Errorf("expected range to start %s, got %s", want, from)
			}
			return []domain.HealthStatsRecord{
				{Date: today.Start, Vitals: domain.Vitals{PulseRate: i(70)}},
			}, nil
		},
	}

	svc := app.NewChartsService(repo, time.Second)
	points, err := svc.GetDaily(context.Background(), "u1", 3, "pulseRate", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Value != nil || points[1].Value != nil {
		t.Errorf("expected empty days to have nil values, got %+v", points[:2])
	}
	if points[2].Day != today.String() || points[2].Value == nil || *points[2].Value != 70 {
		t.Errorf("expected today's pulse 70, got %+v", points[2])
	}
}

func TestGetDaily_ConvertUnit(t *testing.T) {
	repo := &mockStatsRepo{
		findRangeFn: func(context.Context, string, domain.Day, domain.Day) ([]domain.HealthStatsRecord, error) {
			return []domain.HealthStatsRecord{
				{Date: time.Now(), Vitals: domain.Vitals{Weight: f64(100)}},
			}, nil
		},
	}

	svc := app.NewChartsService(repo, time.Second)
	points, err := svc.GetDaily(context.Background(), "u1", 1, "weight", "lb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if points[0].Value == nil || *points[0].Value < 220 || *points[0].Value > 221 {
		t.Errorf("expected ~220.46 lb, got %v", points[0].Value)
	}
	if points[0].Unit != "lb" {
		t.Errorf("expected unit lb, got %q", points[0].Unit)
	}
}

func TestGetDaily_ClampsTo366(t *testing.T) {
	svc := app.NewChartsService(&mockStatsRepo{}, time.Second)
	points, err := svc.GetDaily(context.Background(), "u1", 500, "weight", "kg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != app.MaxChartDays {
		t.Fatalf("expected %d points (clamped), got %d", app.MaxChartDays, len(points))
	}
}

func TestGetDaily_StoreDown(t *testing.T) {
	repo := &mockStatsRepo{
		findRangeFn: func(context.Context, string, domain.Day, domain.Day) ([]domain.HealthStatsRecord, error) {
			return nil, errors.New("dial tcp: refused")
		},
	}
	svc := app.NewChartsService(repo, time.Second)
	_, err := svc.GetDaily(context.Background(), "u1", 7, "yoga", "")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestMetrics_Sorted(t *testing.T) {
	names := app.Metrics()
	if len(names) != 13 {
		t.Fatalf("expected 13 metrics, got %d", len(names))
	}
	for k := 1; k < len(names); k++ {
		if names[k-1] > names[k] {
			t.Errorf("metrics not sorted: %v", names)
		}
	}
}
