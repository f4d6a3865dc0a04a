package repository

import (
	"context"
	"time"

	"crm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// UserReader is the read side of the account store.
type UserReader interface {
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListActiveUsers(ctx context.Context) ([]User, error)
}

// UserWriter mutates accounts.
type UserWriter interface {
	CreateUser(ctx context.Context, in NewUser) (User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// ResetTokenStore manages password reset tokens.
type ResetTokenStore interface {
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (User, error)
	ResetPassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// AuthRepository is the full contract used by the auth service.
type AuthRepository interface {
	UserReader
	UserWriter
	ResetTokenStore
}

var (
	_ AuthRepository     = (*Repository)(nil)
	_ ports.UserProvider = (*Repository)(nil)
)
