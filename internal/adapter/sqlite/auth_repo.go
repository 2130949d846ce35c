package sqlite

import (
	"context"
	"time"

	"vitalstats/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func fromUser(u *domain.User) userModel {
	return userModel{
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

func (m userModel) user() *domain.User {
	return &domain.User{
		ID:           m.ID,
		FullName:     m.FullName,
		Email:        m.Email,
		Username:     m.Username,
		DateOfBirth:  m.DateOfBirth.UTC(),
		Gender:       m.Gender,
		Weight:       m.Weight,
		Height:       m.Height,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, u *domain.User) error {
	m := fromUser(u)
	return translate(d.gorm.WithContext(ctx).Create(&m).Error, domain.ErrUserExists)
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var m userModel
	if err := d.gorm.WithContext(ctx).Where("username = ?", username).First(&m).Error; err != nil {
		return nil, translate(err, domain.ErrUserExists)
	}
	return m.user(), nil
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var m userModel
	if err := d.gorm.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err, domain.ErrUserExists)
	}
	return m.user(), nil
}

// List returns all users in registration order.
func (d *DB) List(ctx context.Context) ([]domain.User, error) {
	var ms []userModel
	if err := d.gorm.WithContext(ctx).Order("created_at").Order("id").Find(&ms).Error; err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(ms))
	for _, m := range ms {
		users = append(users, *m.user())
	}
	return users, nil
}

// UpdateProfile applies the non-nil fields of upd to the user.
func (d *DB) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate, updatedAt time.Time) (*domain.User, error) {
	cols := map[string]any{"updated_at": updatedAt.UTC()}
	if upd.FullName != nil {
		cols["full_name"] = *upd.FullName
	}
	if upd.Username != nil {
		cols["username"] = *upd.Username
	}
	if upd.DateOfBirth != nil {
		cols["date_of_birth"] = upd.DateOfBirth.UTC()
	}
	if upd.Gender != nil {
		cols["gender"] = *upd.Gender
	}
	if upd.Weight != nil {
		cols["weight"] = *upd.Weight
	}
	if upd.Height != nil {
		cols["height"] = *upd.Height
	}
	if upd.PasswordHash != nil {
		cols["password_hash"] = *upd.PasswordHash
	}

	var out userModel
	err := d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		return nil, translate(err, domain.ErrUserExists)
	}
	return out.user(), nil
}

// Delete removes the user and their records in one transaction.
func (d *DB) Delete(ctx context.Context, id string) error {
	err := d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&userModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("user_id = ?", id).Delete(&statsModel{}).Error
	})
	return translate(err, domain.ErrUserExists)
}

// RevokedTokenRepo implements revoked token persistence on DB.
type RevokedTokenRepo struct {
	db *DB
}

// NewRevokedTokenRepo wraps a DB as a RevokedTokenRepository.
func NewRevokedTokenRepo(db *DB) *RevokedTokenRepo {
	return &RevokedTokenRepo{db: db}
}

// Revoke records a token ID as revoked until expiresAt.
func (r *RevokedTokenRepo) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	m := revokedModel{TokenID: tokenID, ExpiresAt: expiresAt.UTC()}
	return r.db.gorm.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error
}

// IsRevoked reports whether the token ID has been revoked.
func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int64
	err := r.db.gorm.WithContext(ctx).Model(&revokedModel{}).Where("token_id = ?", tokenID).Count(&n).Error
	return n > 0, err
}

// DeleteExpired deletes revocations whose token has expired.
func (r *RevokedTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.gorm.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&revokedModel{})
	return res.RowsAffected, res.Error
}
