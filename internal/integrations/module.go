package integrations

import (
	"fmt"

	apphttp "crm_backend/internal/http"
	"crm_backend/internal/integrations/secret"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"
	"crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the integrations module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule wires the Postgres config store, the secret box and both clients.
func NewModule(pool *pgxpool.Pool, cfg config.IntegrationsConfig, log *logger.Logger, val *validator.Validator) (*Module, error) {
	box, err := secret.NewBox(cfg.GetIntegrationsEncryptionKey())
	if err != nil {
		return nil, fmt.Errorf("integrations secret box: %w", err)
	}
	if !box.Enabled() {
		log.Warn("INTEGRATIONS_ENCRYPTION_KEY not set; integration secrets are stored unencrypted")
	}

	svc := NewService(
		NewPGStore(pool, box),
		NewSlackClient(cfg.GetIntegrationTimeout()),
		NewHubSpotClient(cfg.GetHubSpotBaseURL(), cfg.GetIntegrationTimeout()),
		log,
	)
	return &Module{handler: NewHandler(svc, val), service: svc}, nil
}

func (m *Module) Name() string {
	return "integrations"
}

// Service exposes the integrations service for the notification module.
func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/integrations/webhooks")
	group.Use(ctx.RequirePrivileged)
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
