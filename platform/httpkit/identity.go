package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller resolved by AuthRequired. Handlers pass it to
// access.ActorFromIdentity instead of reading gin keys directly.
type Identity interface {
	UserID() uuid.UUID
	// Role is the raw role string from the session; access.ParseRole
	// decides whether it is a known CRM role.
	Role() string
	IsAuthenticated() bool
}

type sessionIdentity struct {
	userID uuid.UUID
	role   string
}

func (s sessionIdentity) UserID() uuid.UUID { return s.userID }

func (s sessionIdentity) Role() string { return s.role }

func (s sessionIdentity) IsAuthenticated() bool { return s.userID != uuid.Nil }

// GetIdentity reads the identity stored by AuthRequired. Requests that did
// not pass through it yield an unauthenticated identity, never nil.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return sessionIdentity{}
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return sessionIdentity{}
	}
	return sessionIdentity{userID: userID, role: c.GetString(ContextRoleKey)}
}

// MustGetIdentity aborts with 401 and returns nil when no user is attached.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return id
}

// RawToken returns the access token the request authenticated with.
func RawToken(c *gin.Context) string {
	return c.GetString(ContextTokenKey)
}
