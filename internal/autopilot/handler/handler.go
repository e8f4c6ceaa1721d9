package handler

import (
	"errors"
	"io"
	"net/http"

	"repairdesk_backend/internal/autopilot/service"
	"repairdesk_backend/internal/autopilot/transport"
	"repairdesk_backend/platform/httpkit"
	"repairdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler exposes the autopilot entry adapters over HTTP.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new autopilot handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the autopilot routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/run", h.Run)
	rg.POST("/webhook", h.Webhook)
	rg.POST("/timeout-sweep", h.TimeoutSweep)
}

// Run handles POST /api/v1/autopilot/run. An empty body processes the next ticket.
func (h *Handler) Run(c *gin.Context) {
	var req transport.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.Run(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

// Webhook handles POST /api/v1/autopilot/webhook
func (h *Handler) Webhook(c *gin.Context) {
	var req transport.WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.HandleWebhook(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusOK
	if resp.Queued {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, resp)
}

// TimeoutSweep handles POST /api/v1/autopilot/timeout-sweep
func (h *Handler) TimeoutSweep(c *gin.Context) {
	resp, err := h.svc.SweepTimeouts(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}
