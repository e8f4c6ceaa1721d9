package email

import (
	"context"
	"time"
)

// ProposalMessage is a slot proposal addressed to a customer.
type ProposalMessage struct {
	To          string
	ContactName string
	Appliance   string
	Options     []string
	ExpiresAt   time.Time
}

// ExpiryMessage tells a customer their options lapsed.
type ExpiryMessage struct {
	To          string
	ContactName string
}

// Sender delivers transactional email.
type Sender interface {
	SendProposalEmail(ctx context.Context, msg ProposalMessage) error
	SendExpiryEmail(ctx context.Context, msg ExpiryMessage) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendProposalEmail(context.Context, ProposalMessage) error { return nil }

func (NoopSender) SendExpiryEmail(context.Context, ExpiryMessage) error { return nil }
