package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/cityweather-go/apperror"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

// PgUserStore is the pgx-backed UserStore implementation.
type PgUserStore struct {
	db *pgxpool.Pool
}

// NewPgUserStore creates a PgUserStore on top of the given pool.
func NewPgUserStore(db *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{db: db}
}

// CreateUser inserts the user and fills in its generated ID and timestamp.
func (s *PgUserStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	query := `INSERT INTO users (email, username, hashed_password, salt, is_active)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at`

	err := s.db.QueryRow(ctx, query,
		user.Email, user.Username, user.HashedPassword, user.Salt, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return nil, apperror.NewConflictError("username already taken", err)
			}
			return nil, apperror.NewConflictError("email already registered", err)
		}
		return nil, apperror.NewDatabaseError("failed to create user", err)
	}
	return user, nil
}

// GetUserByEmail looks a user up by exact email match.
func (s *PgUserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, email, username, hashed_password, salt, is_active, created_at
	          FROM users WHERE email = $1`

	var user User
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Username,
		&user.HashedPassword, &user.Salt, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSuchUser
		}
		return nil, apperror.NewDatabaseError("failed to get user by email", err)
	}
	return &user, nil
}
