package notification

import (
	"context"

	"repairdesk_backend/internal/autopilot/engine"
	"repairdesk_backend/internal/email"
)

// WhatsAppSender sends WhatsApp messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// Dispatcher delivers proposal messages on the customer's channel.
type Dispatcher struct {
	whatsapp WhatsAppSender
	mail     email.Sender
}

// NewDispatcher creates a dispatcher. Nil senders drop their messages.
func NewDispatcher(whatsapp WhatsAppSender, mail email.Sender) *Dispatcher {
	if mail == nil {
		mail = email.NoopSender{}
	}
	return &Dispatcher{whatsapp: whatsapp, mail: mail}
}

func (d *Dispatcher) SendWhatsApp(ctx context.Context, phone, message string) error {
	if d.whatsapp == nil {
		return nil
	}
	return d.whatsapp.SendMessage(ctx, phone, message)
}

func (d *Dispatcher) SendProposalEmail(ctx context.Context, msg engine.ProposalEmail) error {
	return d.mail.SendProposalEmail(ctx, email.ProposalMessage{
		To:          msg.To,
		ContactName: msg.ContactName,
		Appliance:   msg.Appliance,
		Options:     msg.Options,
		ExpiresAt:   msg.ExpiresAt,
	})
}

func (d *Dispatcher) sendExpiryEmail(ctx context.Context, to, contactName string) error {
	return d.mail.SendExpiryEmail(ctx, email.ExpiryMessage{To: to, ContactName: contactName})
}

var _ engine.Dispatcher = (*Dispatcher)(nil)
