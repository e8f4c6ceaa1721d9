// Package notification reacts to autopilot events: it pushes proposal
// changes to connected dashboards and tells customers when their options
// lapsed. Domain modules publish events and never talk to gateways here.
package notification

import (
	"context"
	"strings"

	"repairdesk_backend/internal/autopilot/engine"
	"repairdesk_backend/internal/events"
	apphttp "repairdesk_backend/internal/http"
	"repairdesk_backend/internal/notification/sse"
	"repairdesk_backend/internal/tickets"
	"repairdesk_backend/platform/httpkit"
	"repairdesk_backend/platform/logger"
	"repairdesk_backend/platform/phone"
)

// Module handles notification events.
type Module struct {
	dispatcher *Dispatcher
	sse        *sse.Service
	region     string
	log        *logger.Logger
}

// New creates the notification module. hub may be nil.
func New(dispatcher *Dispatcher, hub *sse.Service, region string, log *logger.Logger) *Module {
	if dispatcher == nil {
		dispatcher = NewDispatcher(nil, nil)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Module{dispatcher: dispatcher, sse: hub, region: region, log: log}
}

// Dispatcher exposes the message dispatcher for the autopilot engine.
func (m *Module) Dispatcher() *Dispatcher { return m.dispatcher }

// Name returns the module name for logging
func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the dashboard event stream under /api/v1/notifications.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.sse == nil {
		return
	}
	notifications := ctx.Protected.Group("/notifications", httpkit.RequireRole(httpkit.RoleDispatcher, httpkit.RoleService))
	notifications.GET("/stream", m.sse.Handler())
}

// RegisterHandlers subscribes to the autopilot events.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ProposalCreated{}.EventName(), m)
	bus.Subscribe(events.ProposalExpired{}.EventName(), m)
	bus.Subscribe(events.NoSlotsFound{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ProposalCreated:
		return m.handleProposalCreated(ctx, e)
	case events.ProposalExpired:
		return m.handleProposalExpired(ctx, e)
	case events.NoSlotsFound:
		return m.handleNoSlotsFound(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleProposalCreated(_ context.Context, e events.ProposalCreated) error {
	m.push(sse.Event{Type: sse.EventProposalCreated, TicketID: &e.TicketID, Data: map[string]any{
		"originChannel": e.OriginChannel,
		"slots":         e.Slots,
		"expiresAt":     e.ExpiresAt,
	}})
	return nil
}

func (m *Module) handleNoSlotsFound(_ context.Context, e events.NoSlotsFound) error {
	m.push(sse.Event{Type: sse.EventProposalNoSlots, TicketID: &e.TicketID, Data: map[string]any{
		"originChannel": e.OriginChannel,
		"searchDays":    e.SearchDays,
	}})
	return nil
}

// handleProposalExpired tells the customer on the channel the request came
// from. App users see the change through their own client.
func (m *Module) handleProposalExpired(ctx context.Context, e events.ProposalExpired) error {
	m.push(sse.Event{Type: sse.EventProposalExpired, TicketID: &e.TicketID, Data: map[string]any{
		"originChannel": e.OriginChannel,
		"expiredAt":     e.ExpiredAt,
	}})

	log := m.log.WithTicketID(e.TicketID.String())
	switch tickets.OriginChannel(e.OriginChannel) {
	case tickets.OriginWhatsApp:
		if !phone.IsDialable(e.ContactPhone, m.region) {
			log.Warn("skipping whatsapp expiry notice: no usable contact phone")
			return nil
		}
		return m.dispatcher.SendWhatsApp(ctx, e.ContactPhone, engine.FormatWhatsAppExpiry(e.ContactName))
	case tickets.OriginBackoffice:
		if strings.TrimSpace(e.ContactEmail) == "" {
			return nil
		}
		return m.dispatcher.sendExpiryEmail(ctx, e.ContactEmail, e.ContactName)
	}
	return nil
}

func (m *Module) push(e sse.Event) {
	if m.sse != nil {
		m.sse.Publish(e)
	}
}

var _ apphttp.Module = (*Module)(nil)
