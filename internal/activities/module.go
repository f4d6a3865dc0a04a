package activities

import (
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/leads/ports"
	"crm_backend/platform/validator"
)

// Module is the activities bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule wires the activities service onto the shared lead repository.
func NewModule(repo Repository, users ports.UserProvider, eventBus events.Bus, val *validator.Validator) *Module {
	svc := NewService(repo, users, eventBus)
	return &Module{handler: NewHandler(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "activities"
}

// Service exposes the activities service.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts activity routes under the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/activities"))
}

var _ apphttp.Module = (*Module)(nil)
