// Package tracking provides the live-location module: GPS ingestion,
// filtering and the dispatcher live map stream.
package tracking

import (
	apphttp "repairdesk_backend/internal/http"
	"repairdesk_backend/internal/notification/sse"
	"repairdesk_backend/internal/tracking/animation"
	"repairdesk_backend/internal/tracking/gps"
	"repairdesk_backend/internal/tracking/handler"
	"repairdesk_backend/internal/tracking/service"
	"repairdesk_backend/platform/config"
	"repairdesk_backend/platform/httpkit"
	"repairdesk_backend/platform/logger"
	"repairdesk_backend/platform/validator"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	fixRateLimit = rate.Limit(2)
	fixBurst     = 10
)

// Module represents the tracking domain module
type Module struct {
	handler *handler.Handler
	limiter *httpkit.IPRateLimiter
	Service *service.Service
}

// NewModule wires the tracking pipeline. rdb may be nil, in which case
// positions are only kept in process memory. Accepted fixes and animation
// frames are broadcast through hub, which the notification module serves.
func NewModule(cfg config.TrackingConfig, rdb *redis.Client, hub *sse.Service, val *validator.Validator, log *logger.Logger) *Module {
	var cache service.PositionCache
	if rdb != nil {
		cache = service.NewRedisPositionCache(rdb, cfg.GetTrackingPositionTTL())
	}

	opts := service.Options{
		Filter:  gps.DefaultFilterConfig(),
		Animate: cfg.IsTrackingAnimationEnabled(),
	}
	if opts.Animate {
		opts.Scheduler = animation.NewTimerFrameScheduler(cfg.GetTrackingFrameInterval())
	}

	var pub service.Publisher
	if hub != nil {
		pub = hub
	}
	svc := service.New(cache, pub, log, opts)

	return &Module{
		handler: handler.New(svc, val),
		limiter: httpkit.NewIPRateLimiter(fixRateLimit, fixBurst, log),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "tracking"
}

// RegisterRoutes registers the module's routes under /api/v1/tracking.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	tracking := ctx.Protected.Group("/tracking")
	tracking.POST("/technicians/:id/fixes",
		httpkit.RequireRole(httpkit.RoleTechnician, httpkit.RoleService),
		m.limiter.RateLimit(),
		m.handler.ReportFix,
	)

	read := tracking.Group("", httpkit.RequireRole(httpkit.RoleDispatcher, httpkit.RoleService))
	m.handler.RegisterRoutes(read)
}

// Close stops the animators.
func (m *Module) Close() {
	m.Service.Close()
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
