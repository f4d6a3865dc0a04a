// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/handler"
	"crm_backend/internal/leads/management"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/leads/repository"
	"crm_backend/platform/config"
	"crm_backend/platform/validator"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
	repo       *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, users ports.UserProvider, cfg config.LeadsConfig) (*Module, error) {
	if err := RegisterValidations(val); err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	mgmtSvc := management.New(repo, users, eventBus, cfg.GetPhoneDefaultRegion())
	h := handler.New(mgmtSvc, val)

	return &Module{
		handler:    h,
		management: mgmtSvc,
		repo:       repo,
	}, nil
}

// RegisterValidations adds the leadstatus and activitytype tags to val.
func RegisterValidations(val *validator.Validator) error {
	if err := val.RegisterValidation("leadstatus", func(fl govalidator.FieldLevel) bool {
		_, ok := domain.ParseStatus(fl.Field().String())
		return ok
	}); err != nil {
		return err
	}
	return val.RegisterValidation("activitytype", func(fl govalidator.FieldLevel) bool {
		_, ok := domain.ParseActivityType(fl.Field().String())
		return ok
	})
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// Repository exposes lead and activity storage to the activities and notification modules.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
