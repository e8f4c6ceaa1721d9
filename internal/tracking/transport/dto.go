package transport

import (
	"time"

	"github.com/google/uuid"
)

// FixRequest is one raw location report from the field app.
type FixRequest struct {
	Lat        *float64   `json:"lat" validate:"required,latitude"`
	Lng        *float64   `json:"lng" validate:"required,longitude"`
	Accuracy   float64    `json:"accuracy" validate:"min=0"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
}

// PositionResponse is the latest filtered position of a technician.
type PositionResponse struct {
	TechnicianID uuid.UUID `json:"technicianId"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Bearing      float64   `json:"bearing"`
	Accuracy     float64   `json:"accuracy"`
	RecordedAt   time.Time `json:"recordedAt"`
	ReceivedAt   time.Time `json:"receivedAt"`
}

// FixResponse tells the device whether its fix moved the marker.
type FixResponse struct {
	Accepted bool              `json:"accepted"`
	Decision string            `json:"decision"`
	Position *PositionResponse `json:"position,omitempty"`
}
