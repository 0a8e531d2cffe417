package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/cityweather-go/apperror"
	"github.com/user/cityweather-go/config"
)

// ErrNoSuchUser is returned by a UserStore when no user matches the lookup.
var ErrNoSuchUser = errors.New("no such user")

// UserStore is the persistence interface required by the credential store.
type UserStore interface {
	// CreateUser inserts the user record and returns it with ID and
	// CreatedAt populated. A duplicate email or username must surface as
	// an apperror conflict.
	CreateUser(ctx context.Context, user *User) (*User, error)
	// GetUserByEmail returns the user with the given email, or
	// ErrNoSuchUser if absent.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// Service implements registration and credential verification over a
// UserStore. It performs exactly one write on Register and none on
// Authenticate.
type Service struct {
	store             UserStore
	minPasswordLength int
	log               *zap.Logger
}

// NewService constructs the credential store service.
func NewService(store UserStore, cfg *config.AuthConfig, log *zap.Logger) *Service {
	return &Service{
		store:             store,
		minPasswordLength: cfg.MinPasswordLength,
		log:               log,
	}
}

// Register creates a new user. It rejects passwords shorter than the
// configured minimum and surfaces duplicate identities as conflicts.
// Emails are stored exactly as supplied.
func (s *Service) Register(ctx context.Context, email, username, password string) (*User, error) {
	if len(password) < s.minPasswordLength {
		return nil, apperror.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", s.minPasswordLength), nil)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, apperror.NewInternalError("failed to generate salt", err)
	}

	user := &User{
		Email:          email,
		Username:       username,
		HashedPassword: HashPassword(password, salt),
		Salt:           salt,
		IsActive:       true,
	}

	created, err := s.store.CreateUser(ctx, user)
	if err != nil {
		// The store maps unique violations to conflicts; everything else
		// passes through as-is.
		return nil, err
	}

	s.log.Info("user registered",
		zap.Int("user_id", created.ID),
		zap.String("username", created.Username),
	)
	return created, nil
}

// Authenticate verifies an email/password pair and returns the user on
// success. Unknown email, wrong password, and deactivated account all
// produce the identical auth error, so a caller can never learn whether an
// email is registered.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			return nil, apperror.NewAuthError("invalid email or password", nil)
		}
		return nil, apperror.NewDatabaseError("failed to look up user", err)
	}

	if !user.IsActive || !VerifyPassword(password, user.Salt, user.HashedPassword) {
		return nil, apperror.NewAuthError("invalid email or password", nil)
	}

	return user, nil
}
