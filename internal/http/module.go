// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"crm_backend/platform/config"
	"crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes using the shared RouterContext.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine.
	Engine *gin.Engine
	// V1 is the public /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the authenticated route group under /api/v1.
	Protected *gin.RouterGroup
	// RequirePrivileged admits Admin and Manager only.
	RequirePrivileged gin.HandlerFunc
	// RequireAdmin admits Admin only.
	RequireAdmin gin.HandlerFunc
	// Config is the JWT configuration for auth middleware.
	Config config.JWTConfig
	// AuthMiddleware authenticates a request.
	AuthMiddleware gin.HandlerFunc
	// AuthRateLimiter is the stricter rate limiter for credential endpoints.
	AuthRateLimiter *httpkit.IPRateLimiter
}
