package events

import (
	platformevents "repairdesk_backend/platform/events"
	"repairdesk_backend/platform/logger"
)

// InMemoryBus delivers proposal events inside one process. The api and the
// scheduler each run their own.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates the process-local bus. Call Wait on shutdown so
// pending WhatsApp and email deliveries finish.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
