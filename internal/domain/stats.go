package domain

import (
	"context"
	"encoding/json"
	"time"
)

// TimestampLayout renders instants with millisecond precision in UTC,
// e.g. 2024-03-01T00:00:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Vitals holds the optional vital-sign readings for a day.
type Vitals struct {
	BodyTemperature   *float64 `json:"bodyTemperature,omitempty" validate:"omitempty,gte=35,lte=42"`
	PulseRate         *int     `json:"pulseRate,omitempty" validate:"omitempty,gte=40,lte=200"`
	RespirationRate   *int     `json:"respirationRate,omitempty" validate:"omitempty,gte=10,lte=50"`
	BloodPressure     *string  `json:"bloodPressure,omitempty" validate:"omitempty,bloodpressure"` // "systolic/diastolic"
	BloodOxygen       *float64 `json:"bloodOxygen,omitempty" validate:"omitempty,gte=0,lte=100"`
	Weight            *float64 `json:"weight,omitempty" validate:"omitempty,gte=0,lte=500"`           // kg
	BloodGlucoseLevel *float64 `json:"bloodGlucoseLevel,omitempty" validate:"omitempty,gte=0,lte=30"` // mmol/L
}

// ExerciseLog holds the optional exercise amounts for a day.
type ExerciseLog struct {
	Walking      *float64 `json:"walking,omitempty" validate:"omitempty,gte=0"` // km
	Jogging      *float64 `json:"jogging,omitempty" validate:"omitempty,gte=0"` // km
	Running      *float64 `json:"running,omitempty" validate:"omitempty,gte=0"` // km
	Cycling      *float64 `json:"cycling,omitempty" validate:"omitempty,gte=0"` // km
	RopeSkipping *int     `json:"ropeSkipping,omitempty" validate:"omitempty,gte=0"`
	Yoga         *int     `json:"yoga,omitempty" validate:"omitempty,gte=0"`  // minutes
	Dance        *int     `json:"dance,omitempty" validate:"omitempty,gte=0"` // minutes
}

// HealthStatsRecord is one user's statistics for one UTC calendar day.
// At most one record exists per (UserID, Date).
type HealthStatsRecord struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Date        time.Time   `json:"date"`
	Vitals      Vitals      `json:"vitals"`
	ExerciseLog ExerciseLog `json:"exerciseLog"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// MarshalJSON renders timestamps with millisecond precision.
func (r HealthStatsRecord) MarshalJSON() ([]byte, error) {
	type alias HealthStatsRecord
	return json.Marshal(&struct {
		Date      string `json:"date"`
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
		alias
	}{
		Date:      r.Date.UTC().Format(TimestampLayout),
		CreatedAt: r.CreatedAt.UTC().Format(TimestampLayout),
		UpdatedAt: r.UpdatedAt.UTC().Format(TimestampLayout),
		alias:     alias(r),
	})
}

// StatsRepository is the port for health-stats persistence. Implementations
// must enforce uniqueness of (UserID, Date) at the store level and report a
// violation as ErrDuplicateRecord. Missing records are reported as ErrNotFound.
type StatsRepository interface {
	Insert(ctx context.Context, rec *HealthStatsRecord) error
	FindByDay(ctx context.Context, userID string, day Day) (*HealthStatsRecord, error)
	// FindRange returns records with from.Start <= Date <= to.End, ascending by Date.
	FindRange(ctx context.Context, userID string, from, to Day) ([]HealthStatsRecord, error)
	// ListAll returns every record, ascending by Date then UserID.
	ListAll(ctx context.Context) ([]HealthStatsRecord, error)
	// Update replaces Vitals and ExerciseLog of the record in the given day
	// and returns the stored result.
	Update(ctx context.Context, userID string, day Day, vitals Vitals, log ExerciseLog, updatedAt time.Time) (*HealthStatsRecord, error)
}

// Stats event types.
const (
	StatsCreated = "healthstats.created"
	StatsUpdated = "healthstats.updated"
)

// StatsEvent is emitted after a record is created or updated.
type StatsEvent struct {
	Type       string            `json:"type"`
	Record     HealthStatsRecord `json:"record"`
	OccurredAt time.Time         `json:"occurredAt"`
}
