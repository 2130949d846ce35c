// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vitalstats/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu      sync.Mutex
	stats   map[statsKey]*domain.HealthStatsRecord
	users   []*domain.User
	revoked map[string]time.Time
}

// statsKey mirrors the unique (user, day) index of the real stores.
type statsKey struct {
	userID string
	day    string
}

func keyOf(userID string, t time.Time) statsKey {
	return statsKey{userID: userID, day: domain.DayOf(t).String()}
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		stats:   make(map[statsKey]*domain.HealthStatsRecord),
		revoked: make(map[string]time.Time),
	}
}

// Ensure interfaces are met.
var _ domain.StatsRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.RevokedTokenRepository = (*RevokedTokenRepo)(nil)

// --- StatsRepository ---

// Insert stores a new record, rejecting a second record for the same user and day.
func (db *DB) Insert(ctx context.Context, rec *domain.HealthStatsRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	k := keyOf(rec.UserID, rec.Date)
	if _, ok := db.stats[k]; ok {
		return domain.ErrDuplicateRecord
	}
	c := cloneRecord(*rec)
	db.stats[k] = &c
	return nil
}

// FindByDay returns the user's record for the day.
func (db *DB) FindByDay(ctx context.Context, userID string, day domain.Day) (*domain.HealthStatsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.stats[keyOf(userID, day.Start)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := cloneRecord(*rec)
	return &c, nil
}

// FindRange returns the user's records inside the inclusive day range, ascending by date.
func (db *DB) FindRange(ctx context.Context, userID string, from, to domain.Day) ([]domain.HealthStatsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	var result []domain.HealthStatsRecord
	for k, rec := range db.stats {
		if k.userID != userID {
			continue
		}
		if rec.Date.Before(from.Start) || rec.Date.After(to.End) {
			continue
		}
		result = append(result, cloneRecord(*rec))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// ListAll returns every record, ascending by date then user.
func (db *DB) ListAll(ctx context.Context) ([]domain.HealthStatsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.HealthStatsRecord, 0, len(db.stats))
	for _, rec := range db.stats {
		result = append(result, cloneRecord(*rec))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// Update replaces the vitals and exercise log of the user's record for the day.
func (db *DB) Update(ctx context.Context, userID string, day domain.Day, vitals domain.Vitals, log domain.ExerciseLog, updatedAt time.Time) (*domain.HealthStatsRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	rec, ok := db.stats[keyOf(userID, day.Start)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := cloneRecord(domain.HealthStatsRecord{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Date:        rec.Date,
		Vitals:      vitals,
		ExerciseLog: log,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   updatedAt.UTC(),
	})
	*rec = next
	out := cloneRecord(next)
	return &out, nil
}

// --- UserRepository ---

// Create creates a new user.
func (db *DB) Create(ctx context.Context, u *domain.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domain.ErrUserExists
		}
	}
	c := *u
	db.users = append(db.users, &c)
	return nil
}

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all users in registration order.
func (db *DB) List(ctx context.Context) ([]domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.User, 0, len(db.users))
	for _, u := range db.users {
		result = append(result, *u)
	}
	return result, nil
}

// UpdateProfile applies the non-nil fields of upd to the user.
func (db *DB) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate, updatedAt time.Time) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var target *domain.User
	for _, u := range db.users {
		if u.ID == id {
			target = u
			break
		}
	}
	if target == nil {
		return nil, domain.ErrNotFound
	}
	if upd.Username != nil && *upd.Username != target.Username {
		for _, u := range db.users {
			if u.Username == *upd.Username {
				return nil, fmt.Errorf("username %q: %w", *upd.Username, domain.ErrUserExists)
			}
		}
	}
	applyProfile(target, upd)
	target.UpdatedAt = updatedAt.UTC()
	c := *target
	return &c, nil
}

// Delete removes the user and their records.
func (db *DB) Delete(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, u := range db.users {
		if u.ID != id {
			continue
		}
		db.users = append(db.users[:i], db.users[i+1:]...)
		for k := range db.stats {
			if k.userID == id {
				delete(db.stats, k)
			}
		}
		return nil
	}
	return domain.ErrNotFound
}

func applyProfile(u *domain.User, upd domain.ProfileUpdate) {
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.DateOfBirth != nil {
		u.DateOfBirth = *upd.DateOfBirth
	}
	if upd.Gender != nil {
		u.Gender = *upd.Gender
	}
	if upd.Weight != nil {
		u.Weight = *upd.Weight
	}
	if upd.Height != nil {
		u.Height = *upd.Height
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
}

// --- RevokedTokenRepository ---

// RevokedTokenRepo implements revoked token persistence.
type RevokedTokenRepo struct {
	db *DB
}

// NewRevokedTokenRepo creates a new revoked token repository.
func (db *DB) NewRevokedTokenRepo() *RevokedTokenRepo {
	return &RevokedTokenRepo{db: db}
}

// Revoke records a token ID as revoked until expiresAt.
func (r *RevokedTokenRepo) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.revoked[tokenID] = expiresAt
	return nil
}

// IsRevoked reports whether the token ID has been revoked.
func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.revoked[tokenID]
	return ok, nil
}

// DeleteExpired deletes revocations whose token has expired.
func (r *RevokedTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for k, exp := range r.db.revoked {
		if now.After(exp) {
			delete(r.db.revoked, k)
			n++
		}
	}
	return n, nil
}

// cloneRecord copies rec including the values behind its optional fields,
// so callers never share memory with the store.
func cloneRecord(rec domain.HealthStatsRecord) domain.HealthStatsRecord {
	v, l := &rec.Vitals, &rec.ExerciseLog
	v.BodyTemperature = clonePtr(v.BodyTemperature)
	v.PulseRate = clonePtr(v.PulseRate)
	v.RespirationRate = clonePtr(v.RespirationRate)
	v.BloodPressure = clonePtr(v.BloodPressure)
	v.BloodOxygen = clonePtr(v.BloodOxygen)
	v.Weight = clonePtr(v.Weight)
	v.BloodGlucoseLevel = clonePtr(v.BloodGlucoseLevel)
	l.Walking = clonePtr(l.Walking)
	l.Jogging = clonePtr(l.Jogging)
	l.Running = clonePtr(l.Running)
	l.Cycling = clonePtr(l.Cycling)
	l.RopeSkipping = clonePtr(l.RopeSkipping)
	l.Yoga = clonePtr(l.Yoga)
	l.Dance = clonePtr(l.Dance)
	return rec
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
