package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vitalstats/internal/domain"
)

const statsColumns = "id, user_id, day, vitals, exercise_log, created_at, updated_at"

func scanRecord(row rowScanner) (*domain.HealthStatsRecord, error) {
	var rec domain.HealthStatsRecord
	var vitals, log []byte
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Date, &vitals, &log, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(vitals, &rec.Vitals); err != nil {
		return nil, fmt.Errorf("decode vitals of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(log, &rec.ExerciseLog); err != nil {
		return nil, fmt.Errorf("decode exercise log of %s: %w", rec.ID, err)
	}
	rec.Date = rec.Date.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

func encodeStats(vitals domain.Vitals, log domain.ExerciseLog) ([]byte, []byte, error) {
	v, err := json.Marshal(vitals)
	if err != nil {
		return nil, nil, err
	}
	l, err := json.Marshal(log)
	if err != nil {
		return nil, nil, err
	}
	return v, l, nil
}

// Insert stores a new record. The (user_id, day) constraint rejects a second
// record for the same day.
func (d *DB) Insert(ctx context.Context, rec *domain.HealthStatsRecord) error {
	vitals, log, err := encodeStats(rec.Vitals, rec.ExerciseLog)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		"INSERT INTO health_stats ("+statsColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		rec.ID, rec.UserID, rec.Date.UTC(), vitals, log, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	return translate(err, domain.ErrDuplicateRecord)
}

// FindByDay returns the user's record for the day.
func (d *DB) FindByDay(ctx context.Context, userID string, day domain.Day) (*domain.HealthStatsRecord, error) {
	rec, err := scanRecord(d.sql.QueryRowContext(ctx,
		"SELECT "+statsColumns+" FROM health_stats WHERE user_id = $1 AND day >= $2 AND day <= $3",
		userID, day.Start, day.End,
	))
	if err != nil {
		return nil, translate(err, domain.ErrDuplicateRecord)
	}
	return rec, nil
}

// FindRange returns the user's records inside the inclusive day range, ascending by date.
func (d *DB) FindRange(ctx context.Context, userID string, from, to domain.Day) ([]domain.HealthStatsRecord, error) {
	return d.queryRecords(ctx,
		"SELECT "+statsColumns+" FROM health_stats WHERE user_id = $1 AND day >= $2 AND day <= $3 ORDER BY day",
		userID, from.Start, to.End,
	)
}

// ListAll returns every record, ascending by date then user.
func (d *DB) ListAll(ctx context.Context) ([]domain.HealthStatsRecord, error) {
	return d.queryRecords(ctx, "SELECT "+statsColumns+" FROM health_stats ORDER BY day, user_id")
}

func (d *DB) queryRecords(ctx context.Context, query string, args ...any) ([]domain.HealthStatsRecord, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var recs []domain.HealthStatsRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// Update replaces the vitals and exercise log of the user's record for the
// day in a single statement.
func (d *DB) Update(ctx context.Context, userID string, day domain.Day, vitals domain.Vitals, log domain.ExerciseLog, updatedAt time.Time) (*domain.HealthStatsRecord, error) {
	v, l, err := encodeStats(vitals, log)
	if err != nil {
		return nil, err
	}
	rec, err := scanRecord(d.sql.QueryRowContext(ctx,
		`UPDATE health_stats SET vitals = $4, exercise_log = $5, updated_at = $6
		WHERE user_id = $1 AND day >= $2 AND day <= $3
		RETURNING `+statsColumns,
		userID, day.Start, day.End, v, l, updatedAt.UTC(),
	))
	if err != nil {
		return nil, translate(err, domain.ErrDuplicateRecord)
	}
	return rec, nil
}
