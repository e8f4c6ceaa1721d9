package http

import (
	"context"

	"repairdesk_backend/internal/events"
	"repairdesk_backend/platform/config"
	"repairdesk_backend/platform/logger"
)

// RouterConfig is the slice of config the router reads: listen address,
// CORS policy and the JWT secret.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs /api/ready. db.PoolAdapter implements it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is built by cmd/api and handed to router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health may be nil; /api/ready then always reports ready.
	Health HealthChecker
	// EventBus carries proposal events from the autopilot to notification.
	EventBus events.Bus
	Modules  []Module
}
