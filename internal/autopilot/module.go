// Package autopilot provides the slot proposal module: automatic appointment
// proposals for new service requests and expiry of unanswered proposals.
package autopilot

import (
	"repairdesk_backend/internal/autopilot/engine"
	"repairdesk_backend/internal/autopilot/handler"
	"repairdesk_backend/internal/autopilot/service"
	"repairdesk_backend/internal/availability"
	"repairdesk_backend/internal/events"
	apphttp "repairdesk_backend/internal/http"
	"repairdesk_backend/internal/settings"
	"repairdesk_backend/internal/tickets"
	"repairdesk_backend/platform/config"
	"repairdesk_backend/platform/httpkit"
	"repairdesk_backend/platform/logger"
	"repairdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the process configuration the module needs.
type Config interface {
	config.BusinessConfig
	GetAutopilotSweepMode() string
}

// Module represents the autopilot domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Engine  *engine.Engine
	Sweeper *engine.Sweeper
}

// NewModule creates a new autopilot module with all dependencies wired.
// dispatcher may be nil when no messaging gateway is configured.
func NewModule(pool *pgxpool.Pool, cfg Config, dispatcher engine.Dispatcher, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	store := tickets.NewRepository(pool, cfg.GetBusinessLocation())
	query := availability.NewQuery(availability.NewRepository(pool))
	opts := engine.Options{
		Location:        cfg.GetBusinessLocation(),
		PhoneRegion:     cfg.GetPhoneDefaultRegion(),
		StaleLockMaxAge: cfg.GetStaleLockMaxAge(),
	}

	eng := engine.New(store, query, dispatcher, bus, log, opts)
	sweeper := engine.NewSweeper(store, bus, log, opts)
	svc := service.New(settings.NewRepository(pool), eng, sweeper, cfg.GetAutopilotSweepMode(), log)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
		Engine:  eng,
		Sweeper: sweeper,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "autopilot"
}

// RegisterRoutes registers the module's routes under /api/v1/autopilot.
// Only service-role callers (cron, database webhooks) may trigger runs.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	autopilot := ctx.Protected.Group("/autopilot", httpkit.RequireRole(httpkit.RoleService))
	m.handler.RegisterRoutes(autopilot)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
