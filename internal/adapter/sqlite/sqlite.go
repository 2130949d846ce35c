// Package sqlite implements the domain repositories on SQLite through gorm.
package sqlite

import (
	"errors"
	"fmt"
	"time"

	"vitalstats/internal/domain"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type statsModel struct {
	ID          string             `gorm:"primaryKey"`
	UserID      string             `gorm:"not null;uniqueIndex:uidx_user_day"`
	Day         time.Time          `gorm:"not null;uniqueIndex:uidx_user_day;index"`
	Vitals      domain.Vitals      `gorm:"serializer:json"`
	ExerciseLog domain.ExerciseLog `gorm:"serializer:json"`
	CreatedAt   time.Time          `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time          `gorm:"autoUpdateTime:false"`
}

func (statsModel) TableName() string { return "health_stats" }

type userModel struct {
	ID           string `gorm:"primaryKey"`
	FullName     string
	Email        string `gorm:"not null;uniqueIndex"`
	Username     string `gorm:"not null;uniqueIndex"`
	DateOfBirth  time.Time
	Gender       string
	Weight       float64
	Height       float64
	PasswordHash string
	CreatedAt    time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false"`
}

func (userModel) TableName() string { return "users" }

type revokedModel struct {
	TokenID   string    `gorm:"primaryKey"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (revokedModel) TableName() string { return "revoked_tokens" }

// DB wraps a gorm handle and implements domain repository interfaces.
type DB struct {
	gorm *gorm.DB
}

// Ensure interfaces are met.
var _ domain.StatsRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.RevokedTokenRepository = (*RevokedTokenRepo)(nil)

// Open opens the SQLite database at path (":memory:" for a private in-memory
// database) and migrates the schema.
func Open(path string) (*DB, error) {
	g, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := g.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; a single connection also keeps ":memory:"
	// databases from splitting per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := g.AutoMigrate(&userModel{}, &statsModel{}, &revokedModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &DB{gorm: g}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto domain sentinels. dup is returned for a
// unique constraint violation.
func translate(err, dup error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", dup, err)
	default:
		return err
	}
}
