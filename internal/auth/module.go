// Package auth provides the authentication and user management module.
package auth

import (
	"crm_backend/internal/auth/handler"
	"crm_backend/internal/auth/repository"
	"crm_backend/internal/auth/service"
	"crm_backend/internal/auth/token"
	authvalidator "crm_backend/internal/auth/validator"
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces the auth module reads.
type ModuleConfig interface {
	config.AuthServiceConfig
	config.CookieConfig
}

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates the auth module. denylist may be nil when Redis is not configured.
func NewModule(pool *pgxpool.Pool, cfg ModuleConfig, eventBus events.Bus, denylist token.Denylist, log *logger.Logger, val *validator.Validator) (*Module, error) {
	if err := authvalidator.Register(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	svc := service.New(repo, cfg, eventBus, denylist, log)

	return &Module{
		handler: handler.New(svc, cfg, val),
		service: svc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service; it is also the router's session validator.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the user store to the leads, activities and notification modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts auth and user management routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/auth")
	public.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(public)

	ctx.Protected.POST("/auth/logout", m.handler.Logout)
	ctx.Protected.GET("/auth/me", m.handler.Me)

	users := ctx.Protected.Group("/users")
	users.GET("/list", m.handler.ListActiveUsers)

	managed := users.Group("")
	managed.Use(ctx.RequirePrivileged)
	managed.GET("", m.handler.ListUsers)
	managed.POST("", m.handler.CreateUser)
	managed.PUT("/:id", m.handler.UpdateUser)
	managed.DELETE("/:id", m.handler.DeleteUser)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
