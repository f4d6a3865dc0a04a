package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crm_backend/internal/leads/ports"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	msgEmailTaken = "User with this email already exists"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser carries the values for an account insert.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
}

// UserUpdate holds optional column changes; nil fields are left untouched.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *string
	IsActive     *bool
}

const userColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

func (r *Repository) CreateUser(ctx context.Context, in NewUser) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		in.Name, in.Email, in.PasswordHash, in.Role, in.IsActive,
	))
	if err != nil {
		return User{}, mapWriteError(err, "create user")
	}
	return user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)
	`, strings.TrimSpace(email)))
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1
	`, userID))
}

// ListUsers returns every account, newest first.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
}

// ListActiveUsers returns active accounts ordered by name, for assignee pickers.
func (r *Repository) ListActiveUsers(ctx context.Context) ([]User, error) {
	return r.queryUsers(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY name ASC`)
}

func (r *Repository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *Repository) UpdateUser(ctx context.Context, userID uuid.UUID, upd UserUpdate) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash),
			role = COALESCE($5, role),
			is_active = COALESCE($6, is_active),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		userID, upd.Name, upd.Email, upd.PasswordHash, upd.Role, upd.IsActive,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, err
		}
		return User{}, mapWriteError(err, "update user")
	}
	return user, nil
}

func (r *Repository) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return mapWriteError(err, "delete user")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetResetToken stores the hash of a password reset token and its expiry.
func (r *Repository) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET reset_token_hash = $2, reset_token_expiry = $3, updated_at = now()
		WHERE id = $1
	`, userID, tokenHash, expiresAt)
	return err
}

// GetUserByResetToken finds the user holding an unexpired reset token.
func (r *Repository) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE reset_token_hash = $1 AND reset_token_expiry > $2
	`, tokenHash, now))
}

// ResetPassword sets a new password hash and clears the reset token in one statement.
func (r *Repository) ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = now()
		WHERE id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearExpiredResetTokens drops reset tokens whose expiry has passed.
func (r *Repository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET reset_token_hash = NULL, reset_token_expiry = NULL
		WHERE reset_token_hash IS NOT NULL AND reset_token_expiry <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetActiveUser implements ports.UserProvider for the leads and activities modules.
func (r *Repository) GetActiveUser(ctx context.Context, userID uuid.UUID) (ports.UserInfo, error) {
	user, err := r.GetUserByID(ctx, userID)
	if errors.Is(err, ErrNotFound) || (err == nil && !user.IsActive) {
		return ports.UserInfo{}, ports.ErrUserNotFound
	}
	if err != nil {
		return ports.UserInfo{}, err
	}
	return ports.UserInfo{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}, nil
}

func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict(msgEmailTaken).WithOp(op)
		case pgForeignKeyViolation:
			return apperr.Conflict("User still owns leads or activities; reassign them or deactivate the account instead").WithOp(op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
