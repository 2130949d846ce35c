package postgres

import (
	"context"
	"database/sql"
	"time"

	"vitalstats/internal/domain"
)

const userColumns = "id, full_name, email, username, date_of_birth, gender, weight, height, password_hash, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var dob sql.NullTime
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.Username, &dob, &u.Gender,
		&u.Weight, &u.Height, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if dob.Valid {
		u.DateOfBirth = dob.Time.UTC()
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username))
	if err != nil {
		return nil, translate(err, domain.ErrUserExists)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(d.sql.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, translate(err, domain.ErrUserExists)
	}
	return u, nil
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, u *domain.User) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		u.ID, u.FullName, u.Email, u.Username, nullTime(u.DateOfBirth), u.Gender,
		u.Weight, u.Height, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	return translate(err, domain.ErrUserExists)
}

// List returns all users in registration order.
func (d *DB) List(ctx context.Context) ([]domain.User, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateProfile applies the non-nil fields of upd to the user.
func (d *DB) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate, updatedAt time.Time) (*domain.User, error) {
	var dob sql.NullTime
	if upd.DateOfBirth != nil {
		dob = nullTime(*upd.DateOfBirth)
	}
	u, err := scanUser(d.sql.QueryRowContext(ctx,
		`UPDATE users SET
			full_name = COALESCE($2, full_name),
			username = COALESCE($3, username),
			date_of_birth = COALESCE($4, date_of_birth),
			gender = COALESCE($5, gender),
			weight = COALESCE($6, weight),
			height = COALESCE($7, height),
			password_hash = COALESCE($8, password_hash),
			updated_at = $9
		WHERE id = $1
		RETURNING `+userColumns,
		id, upd.FullName, upd.Username, dob, upd.Gender, upd.Weight, upd.Height, upd.PasswordHash, updatedAt,
	))
	if err != nil {
		return nil, translate(err, domain.ErrUserExists)
	}
	return u, nil
}

// Delete removes the user. health_stats rows go with it through the
// ON DELETE CASCADE foreign key.
func (d *DB) Delete(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
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
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO revoked_tokens (token_id, expires_at) VALUES ($1, $2) ON CONFLICT (token_id) DO NOTHING",
		tokenID, expiresAt,
	)
	return err
}

// IsRevoked reports whether the token ID has been revoked.
func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var exists bool
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_id = $1)", tokenID,
	).Scan(&exists)
	return exists, err
}

// DeleteExpired deletes revocations whose token has expired.
func (r *RevokedTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.sql.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at < $1", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
