package settings

import (
	"context"
	"net/http"

	"repairdesk_backend/platform/httpkit"
	"repairdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Store reads and writes the business settings.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

// Handler exposes the settings over HTTP.
type Handler struct {
	store Store
	val   *validator.Validator
}

// NewHandler creates a settings handler.
func NewHandler(store Store, val *validator.Validator) *Handler {
	return &Handler{store: store, val: val}
}

// RegisterRoutes registers the settings routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
}

// Get handles GET /api/v1/settings
func (h *Handler) Get(c *gin.Context) {
	s, err := h.store.Load(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, s)
}

// Update handles PUT /api/v1/settings. The body replaces both keys.
func (h *Handler) Update(c *gin.Context) {
	var req Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	req.Mode = ParseMode(string(req.Mode))
	req.SlotSelection = req.SlotSelection.Normalize()
	if err := h.store.Save(c.Request.Context(), req); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, req)
}
