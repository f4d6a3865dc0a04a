package http

import (
	"context"

	"crm_backend/internal/events"
	"crm_backend/platform/config"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// It is populated by the composition root and passed to the router.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	// Sessions confirms a token still belongs to an active, non-revoked account.
	Sessions httpkit.SessionValidator
	Modules  []Module
}
