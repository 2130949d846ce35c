package sqlite

import (
	"context"
	"time"

	"vitalstats/internal/domain"

	"gorm.io/gorm"
)

func fromRecord(rec *domain.HealthStatsRecord) statsModel {
	return statsModel{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Day:         rec.Date.UTC(),
		Vitals:      rec.Vitals,
		ExerciseLog: rec.ExerciseLog,
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
}

func (m statsModel) record() domain.HealthStatsRecord {
	return domain.HealthStatsRecord{
		ID:          m.ID,
		UserID:      m.UserID,
		Date:        m.Day.UTC(),
		Vitals:      m.Vitals,
		ExerciseLog: m.ExerciseLog,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func inDays(tx *gorm.DB, userID string, from, to domain.Day) *gorm.DB {
	return tx.Where("user_id = ? AND day >= ? AND day <= ?", userID, from.Start.UTC(), to.End.UTC())
}

// Insert stores a new record. The uidx_user_day index rejects a second
// record for the same day.
func (d *DB) Insert(ctx context.Context, rec *domain.HealthStatsRecord) error {
	m := fromRecord(rec)
	return translate(d.gorm.WithContext(ctx).Create(&m).Error, domain.ErrDuplicateRecord)
}

// FindByDay returns the user's record for the day.
func (d *DB) FindByDay(ctx context.Context, userID string, day domain.Day) (*domain.HealthStatsRecord, error) {
	var m statsModel
	if err := inDays(d.gorm.WithContext(ctx), userID, day, day).First(&m).Error; err != nil {
		return nil, translate(err, domain.ErrDuplicateRecord)
	}
	rec := m.record()
	return &rec, nil
}

// FindRange returns the user's records inside the inclusive day range, ascending by date.
func (d *DB) FindRange(ctx context.Context, userID string, from, to domain.Day) ([]domain.HealthStatsRecord, error) {
	var ms []statsModel
	if err := inDays(d.gorm.WithContext(ctx), userID, from, to).Order("day").Find(&ms).Error; err != nil {
		return nil, err
	}
	return records(ms), nil
}

// ListAll returns every record, ascending by date then user.
func (d *DB) ListAll(ctx context.Context) ([]domain.HealthStatsRecord, error) {
	var ms []statsModel
	if err := d.gorm.WithContext(ctx).Order("day").Order("user_id").Find(&ms).Error; err != nil {
		return nil, err
	}
	return records(ms), nil
}

func records(ms []statsModel) []domain.HealthStatsRecord {
	recs := make([]domain.HealthStatsRecord, 0, len(ms))
	for _, m := range ms {
		recs = append(recs, m.record())
	}
	return recs
}

// Update replaces the vitals and exercise log of the user's record for the
// day inside one transaction.
func (d *DB) Update(ctx context.Context, userID string, day domain.Day, vitals domain.Vitals, log domain.ExerciseLog, updatedAt time.Time) (*domain.HealthStatsRecord, error) {
	var out statsModel
	err := d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := inDays(tx.Model(&statsModel{}), userID, day, day).
			Select("Vitals", "ExerciseLog", "UpdatedAt").
			Updates(statsModel{Vitals: vitals, ExerciseLog: log, UpdatedAt: updatedAt.UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return inDays(tx, userID, day, day).First(&out).Error
	})
	if err != nil {
		return nil, translate(err, domain.ErrDuplicateRecord)
	}
	rec := out.record()
	return &rec, nil
}
