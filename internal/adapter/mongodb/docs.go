package mongodb

import (
	"time"

	"vitalstats/internal/domain"
)

type vitalsDoc struct {
	BodyTemperature   *float64 `bson:"bodyTemperature,omitempty"`
	PulseRate         *int     `bson:"pulseRate,omitempty"`
	RespirationRate   *int     `bson:"respirationRate,omitempty"`
	BloodPressure     *string  `bson:"bloodPressure,omitempty"`
	BloodOxygen       *float64 `bson:"bloodOxygen,omitempty"`
	Weight            *float64 `bson:"weight,omitempty"`
	BloodGlucoseLevel *float64 `bson:"bloodGlucoseLevel,omitempty"`
}

type exerciseDoc struct {
	Walking      *float64 `bson:"walking,omitempty"`
	Jogging      *float64 `bson:"jogging,omitempty"`
	Running      *float64 `bson:"running,omitempty"`
	Cycling      *float64 `bson:"cycling,omitempty"`
	RopeSkipping *int     `bson:"ropeSkipping,omitempty"`
	Yoga         *int     `bson:"yoga,omitempty"`
	Dance        *int     `bson:"dance,omitempty"`
}

type statsDoc struct {
	ID          string      `bson:"_id"`
	UserID      string      `bson:"userId"`
	Date        time.Time   `bson:"date"`
	Vitals      vitalsDoc   `bson:"vitals"`
	ExerciseLog exerciseDoc `bson:"exerciseLog"`
	CreatedAt   time.Time   `bson:"createdAt"`
	UpdatedAt   time.Time   `bson:"updatedAt"`
}

type userDoc struct {
	ID           string    `bson:"_id"`
	FullName     string    `bson:"fullName"`
	Email        string    `bson:"email"`
	Username     string    `bson:"username"`
	DateOfBirth  time.Time `bson:"dateOfBirth,omitempty"`
	Gender       string    `bson:"gender,omitempty"`
	Weight       float64   `bson:"weight,omitempty"`
	Height       float64   `bson:"height,omitempty"`
	PasswordHash string    `bson:"passwordHash,omitempty"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

type revokedDoc struct {
	TokenID   string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

func toVitalsDoc(v domain.Vitals) vitalsDoc {
	return vitalsDoc(v)
}

func toExerciseDoc(l domain.ExerciseLog) exerciseDoc {
	return exerciseDoc(l)
}

func toStatsDoc(rec *domain.HealthStatsRecord) statsDoc {
	return statsDoc{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Date:        rec.Date.UTC(),
		Vitals:      toVitalsDoc(rec.Vitals),
		ExerciseLog: toExerciseDoc(rec.ExerciseLog),
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
}

func (d statsDoc) record() domain.HealthStatsRecord {
	return domain.HealthStatsRecord{
		ID:          d.ID,
		UserID:      d.UserID,
		Date:        d.Date.UTC(),
		Vitals:      domain.Vitals(d.Vitals),
		ExerciseLog: domain.ExerciseLog(d.ExerciseLog),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func toUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		Username:     u.Username,
		DateOfBirth:  u.DateOfBirth.UTC(),
		Gender:       u.Gender,
		Weight:       u.Weight,
		Height:       u.Height,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (d userDoc) user() *domain.User {
	u := &domain.User{
		ID:           d.ID,
		FullName:     d.FullName,
		Email:        d.Email,
		Username:     d.Username,
		Gender:       d.Gender,
		Weight:       d.Weight,
		Height:       d.Height,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if !d.DateOfBirth.IsZero() {
		u.DateOfBirth = d.DateOfBirth.UTC()
	}
	return u
}
