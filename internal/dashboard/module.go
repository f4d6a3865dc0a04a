package dashboard

import (
	apphttp "crm_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the dashboard module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(pool *pgxpool.Pool) *Module {
	svc := NewService(NewRepository(pool))
	return &Module{handler: NewHandler(svc), service: svc}
}

func (m *Module) Name() string {
	return "dashboard"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/dashboard"), ctx.RequirePrivileged)
}

var _ apphttp.Module = (*Module)(nil)
