package handler

import (
	"net/http"

	"repairdesk_backend/internal/tracking/service"
	"repairdesk_backend/internal/tracking/transport"
	"repairdesk_backend/platform/geo"
	"repairdesk_backend/platform/httpkit"
	"repairdesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid technician id"
)

// Handler exposes live tracking over HTTP.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new tracking handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the read routes. Ingestion is mounted separately
// so it can carry its own rate limit.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/technicians/:id/position", h.GetPosition)
}

// ReportFix handles POST /api/v1/tracking/technicians/:id/fixes
func (h *Handler) ReportFix(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	if !identity.IsService() && identity.Subject() != id.String() {
		httpkit.Error(c, http.StatusForbidden, "cannot report location for another technician", nil)
		return
	}

	var req transport.FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	fix := service.Fix{
		Position: geo.Position{Lat: *req.Lat, Lng: *req.Lng},
		Accuracy: req.Accuracy,
	}
	if req.RecordedAt != nil {
		fix.RecordedAt = *req.RecordedAt
	}

	result, err := h.svc.Ingest(c.Request.Context(), id, fix)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.FixResponse{Accepted: result.Accepted, Decision: string(result.Decision)}
	if result.Position != nil {
		pos := toPositionResponse(*result.Position)
		resp.Position = &pos
	}
	httpkit.OK(c, resp)
}

// GetPosition handles GET /api/v1/tracking/technicians/:id/position
func (h *Handler) GetPosition(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	pos, err := h.svc.LastPosition(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toPositionResponse(pos))
}

func toPositionResponse(p service.LivePosition) transport.PositionResponse {
	return transport.PositionResponse{
		TechnicianID: p.TechnicianID,
		Lat:          p.Position.Lat,
		Lng:          p.Position.Lng,
		Bearing:      p.Bearing,
		Accuracy:     p.Accuracy,
		RecordedAt:   p.RecordedAt,
		ReceivedAt:   p.ReceivedAt,
	}
}
