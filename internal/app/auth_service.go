// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"vitalstats/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates that the provided username or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrSessionNotFound indicates that the session token is missing or malformed.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired or was logged out.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	FullName        string  `json:"fullName" validate:"required"`
	Email           string  `json:"email" validate:"required,email"`
	Username        string  `json:"username" validate:"required,min=3,max=30"`
	Password        string  `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string  `json:"confirmPassword" validate:"required,eqfield=Password"`
	DateOfBirth     string  `json:"dateOfBirth" validate:"required"`
	Gender          string  `json:"gender" validate:"required,oneof=Male Female"`
	Weight          float64 `json:"weight" validate:"gt=0"`
	Height          float64 `json:"height" validate:"gt=0"`
}

// ProfileInput is the profile update payload. Nil fields are unchanged.
type ProfileInput struct {
	FullName        *string  `json:"fullName" validate:"omitempty,min=1"`
	Username        *string  `json:"username" validate:"omitempty,min=3,max=30"`
	DateOfBirth     *string  `json:"dateOfBirth"`
	Gender          *string  `json:"gender" validate:"omitempty,oneof=Male Female"`
	Weight          *float64 `json:"weight" validate:"omitempty,gt=0"`
	Height          *float64 `json:"height" validate:"omitempty,gt=0"`
	Password        *string  `json:"password" validate:"omitempty,min=6,max=72"`
	ConfirmPassword *string  `json:"confirmPassword"`
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService handles registration, authentication and session management.
type AuthService struct {
	users      domain.UserRepository
	revoked    domain.RevokedTokenRepository
	tokens     *TokenIssuer
	bcryptCost int
	timeout    time.Duration
}

// NewAuthService creates a new authentication service. A bcryptCost of zero
// selects bcrypt.DefaultCost.
func NewAuthService(users domain.UserRepository, revoked domain.RevokedTokenRepository, tokens *TokenIssuer, bcryptCost int) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		revoked:    revoked,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		timeout:    DefaultStoreTimeout,
	}
}

// SessionTTL returns the lifetime of issued session tokens.
func (s *AuthService) SessionTTL() time.Duration { return s.tokens.TTL() }

// Register validates the input and creates a new user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	dob, err := domain.ParseDay(in.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("dateOfBirth: %w", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Email:        in.Email,
		Username:     in.Username,
		DateOfBirth:  dob.Start,
		Gender:       in.Gender,
		Weight:       in.Weight,
		Height:       in.Height,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.users.Create(sctx, u); err != nil {
		return nil, storeError("register", err)
	}
	return u, nil
}

// Login authenticates a user and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByUsername(sctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeError("login", err)
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// Logout revokes the session token until it would have expired. Tokens that
// are already invalid need no revocation.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.revoked.Revoke(sctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return storeError("logout", err)
	}
	return nil
}

// ValidateSession checks the session token and returns its user.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	revoked, err := s.revoked.IsRevoked(sctx, claims.ID)
	if err != nil {
		return nil, storeError("validate session", err)
	}
	if revoked {
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(sctx, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("validate session", err)
	}
	return user, nil
}

// ValidateForwardAuth resolves the user named by a trusted forward-auth
// proxy (Remote-User header).
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.User, error) {
	if remoteUser == "" {
		return nil, errors.New("no remote user header")
	}
	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByUsername(sctx, remoteUser)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("forward auth", err)
	}
	return user, nil
}

// LoginWithUser issues a session for a user already authenticated by an
// identity provider, provisioning the account on first sight.
func (s *AuthService) LoginWithUser(ctx context.Context, email, fullName string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: identity has no email", domain.ErrInvalidInput)
	}

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByUsername(sctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		now := time.Now().UTC()
		user = &domain.User{
			ID:        uuid.NewString(),
			FullName:  fullName,
			Email:     email,
			Username:  email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.users.Create(sctx, user)
		if errors.Is(err, domain.ErrUserExists) {
			// Lost a provisioning race; the other request created it.
			user, err = s.users.GetByUsername(sctx, email)
		}
	}
	if err != nil {
		return nil, storeError("sso login", err)
	}
	return s.issue(user)
}

// GetUser returns the user with the given ID.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	u, err := s.users.GetByID(sctx, id)
	if err != nil {
		return nil, storeError("get user", err)
	}
	return u, nil
}

// ListUsers returns every registered user.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	users, err := s.users.List(sctx)
	if err != nil {
		return nil, storeError("list users", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// UpdateProfile applies the non-nil fields of in to the user's profile.
// Email cannot be changed; a password change requires a matching confirmation.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*domain.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var upd domain.ProfileUpdate
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		upd.FullName = &name
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		upd.Username = &username
	}
	upd.Gender = in.Gender
	upd.Weight = in.Weight
	upd.Height = in.Height
	if in.DateOfBirth != nil {
		dob, err := domain.ParseDay(*in.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("dateOfBirth: %w", err)
		}
		upd.DateOfBirth = &dob.Start
	}
	if in.Password != nil {
		if in.ConfirmPassword == nil || *in.ConfirmPassword != *in.Password {
			return nil, fmt.Errorf("%w: passwords do not match", domain.ErrInvalidInput)
		}
		hash, err := s.hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		h := string(hash)
		upd.PasswordHash = &h
	}

	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	u, err := s.users.UpdateProfile(sctx, id, upd, time.Now().UTC())
	if err != nil {
		return nil, storeError("update profile", err)
	}
	return u, nil
}

// maxPasswordBytes is bcrypt's input limit. The validator counts characters,
// so multi-byte passwords are checked again here.
const maxPasswordBytes = 72

func (s *AuthService) hashPassword(password string) ([]byte, error) {
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return hash, err
}

// DeleteUser removes the user and all of their health-stats records. Their
// outstanding sessions stop validating because the user no longer resolves.
func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	sctx, cancel := withStoreTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.users.Delete(sctx, id); err != nil {
		return storeError("delete user", err)
	}
	return nil
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
