package settings

import (
	apphttp "repairdesk_backend/internal/http"
	"repairdesk_backend/platform/httpkit"
	"repairdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module serves the business settings to the back office.
type Module struct {
	handler    *Handler
	Repository *Repository
}

// NewModule creates the settings module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := NewRepository(pool)
	return &Module{handler: NewHandler(repo, val), Repository: repo}
}

// Name returns the module name for logging
func (m *Module) Name() string { return "settings" }

// RegisterRoutes registers the module's routes under /api/v1/settings.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/settings", httpkit.RequireRole(httpkit.RoleDispatcher, httpkit.RoleService))
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
