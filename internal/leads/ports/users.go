// Package ports defines consumer-driven interfaces for external dependencies.
// These interfaces are defined in the Leads domain based on what it needs,
// rather than what other domains choose to offer.
package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned by UserProvider when no active user matches.
var ErrUserNotFound = errors.New("user not found")

// UserInfo represents the minimal user data the leads domain needs.
type UserInfo struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  string
}

// UserProvider provides user information needed by the leads domain.
// This interface is defined here (consumer-driven) rather than in the auth domain.
// The auth repository implements it.
type UserProvider interface {
	// GetActiveUser returns basic info for an active user or ErrUserNotFound.
	GetActiveUser(ctx context.Context, userID uuid.UUID) (UserInfo, error)
}
