// Package http wires the repairdesk modules into one gin engine.
package http

import (
	"repairdesk_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is implemented by autopilot, settings, tracking and notification.
type Module interface {
	// Name is used in startup logs.
	Name() string
	// RegisterRoutes mounts the module. Modules add their own role checks
	// on top of the bearer-token group.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a module sees of the router.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind httpkit.AuthRequired: service-role,
	// dispatcher and technician tokens all pass, RequireRole narrows it.
	Protected *gin.RouterGroup
	Config    config.JWTConfig
}
