// Package service wires the autopilot engine to its entry adapters: direct
// calls, database webhooks and periodic triggers.
package service

import (
	"context"
	"strings"
	"time"

	"repairdesk_backend/internal/autopilot/engine"
	"repairdesk_backend/internal/autopilot/transport"
	"repairdesk_backend/internal/settings"
	"repairdesk_backend/internal/tickets"
	"repairdesk_backend/platform/apperr"
	"repairdesk_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	webhookInsert = "INSERT"
	webhookTable  = "tickets"

	SweepModeSingle = "single"
	SweepModeBatch  = "batch"
)

// SettingsLoader loads the business configuration for one invocation.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// Enqueuer hands a ticket to the background worker.
type Enqueuer interface {
	EnqueueProcessTicket(ctx context.Context, ticketID uuid.UUID) error
}

// Service is the autopilot application service.
type Service struct {
	settings  SettingsLoader
	engine    *engine.Engine
	sweeper   *engine.Sweeper
	enqueuer  Enqueuer
	sweepMode string
	log       *logger.Logger
}

// New creates the service. sweepMode picks what a periodic trigger does.
func New(loader SettingsLoader, eng *engine.Engine, sweeper *engine.Sweeper, sweepMode string, log *logger.Logger) *Service {
	if sweepMode != SweepModeBatch {
		sweepMode = SweepModeSingle
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{settings: loader, engine: eng, sweeper: sweeper, sweepMode: sweepMode, log: log}
}

// SetEnqueuer lets webhooks hand work to the background worker. Without one,
// webhooks process the ticket inline.
func (s *Service) SetEnqueuer(enqueuer Enqueuer) {
	s.enqueuer = enqueuer
}

// Run processes one ticket, the next ticket, or a batch.
func (s *Service) Run(ctx context.Context, req transport.RunRequest) (transport.RunResponse, error) {
	cfg, err := s.loadSettings(ctx)
	if err != nil {
		return transport.RunResponse{}, err
	}

	switch {
	case req.TicketID != nil:
		res, err := s.engine.ProcessTicket(ctx, cfg, *req.TicketID)
		if err != nil {
			return transport.RunResponse{}, err
		}
		return transport.RunResponse{Mode: transport.RunModeTicket, Results: []transport.TicketResult{toTicketResult(res)}}, nil
	case req.Batch:
		results, err := s.engine.ProcessBatch(ctx, cfg, req.Limit)
		if err != nil {
			return transport.RunResponse{}, err
		}
		return transport.RunResponse{Mode: transport.RunModeBatch, Results: toTicketResults(results)}, nil
	default:
		res, err := s.engine.ProcessNext(ctx, cfg)
		if err != nil {
			return transport.RunResponse{}, err
		}
		return transport.RunResponse{Mode: transport.RunModeNext, Results: []transport.TicketResult{toTicketResult(res)}}, nil
	}
}

// RunScheduled is the periodic trigger. The configured sweep mode decides
// between the single highest-priority ticket and a batch.
func (s *Service) RunScheduled(ctx context.Context) (transport.RunResponse, error) {
	return s.Run(ctx, transport.RunRequest{Batch: s.sweepMode == SweepModeBatch})
}

// ProcessTicket processes one ticket with freshly loaded settings.
func (s *Service) ProcessTicket(ctx context.Context, ticketID uuid.UUID) (engine.Result, error) {
	cfg, err := s.loadSettings(ctx)
	if err != nil {
		return engine.Result{}, err
	}
	return s.engine.ProcessTicket(ctx, cfg, ticketID)
}

// HandleWebhook reacts to a new ticket row. Other change types are rejected.
func (s *Service) HandleWebhook(ctx context.Context, req transport.WebhookRequest) (transport.WebhookResponse, error) {
	if !strings.EqualFold(req.Type, webhookInsert) {
		return transport.WebhookResponse{}, apperr.BadRequest("unsupported webhook type").WithDetails(req.Type)
	}
	if !strings.EqualFold(req.Table, webhookTable) {
		return transport.WebhookResponse{}, apperr.BadRequest("unsupported webhook table").WithDetails(req.Table)
	}

	resp := transport.WebhookResponse{TicketID: req.Record.ID}
	if req.Record.Status != "" && tickets.Status(req.Record.Status) != tickets.StatusRequested {
		resp.Ignored = true
		return resp, nil
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueProcessTicket(ctx, req.Record.ID); err != nil {
			return transport.WebhookResponse{}, apperr.Unavailable("failed to enqueue ticket", err)
		}
		resp.Queued = true
		return resp, nil
	}

	res, err := s.ProcessTicket(ctx, req.Record.ID)
	if err != nil {
		return transport.WebhookResponse{}, err
	}
	result := toTicketResult(res)
	resp.Result = &result
	return resp, nil
}

// SweepTimeouts expires unanswered proposals using the configured timeout.
func (s *Service) SweepTimeouts(ctx context.Context) (transport.SweepResponse, error) {
	cfg, err := s.loadSettings(ctx)
	if err != nil {
		return transport.SweepResponse{}, err
	}

	timeout := cfg.SlotSelection.Normalize().TimeoutMinutes
	result, err := s.sweeper.SweepExpired(ctx, timeout)
	if err != nil {
		return transport.SweepResponse{}, err
	}

	return transport.SweepResponse{
		Checked:            result.Checked,
		Expired:            result.Expired,
		Skipped:            result.Skipped,
		StaleLocksReleased: result.StaleLocksReleased,
		TimeoutMinutes:     timeout,
		RanAt:              time.Now().UTC(),
	}, nil
}

func (s *Service) loadSettings(ctx context.Context) (settings.Settings, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		s.log.Error("failed to load business settings", "error", err)
		return settings.Settings{}, apperr.Unavailable("failed to load business settings", err)
	}
	return cfg, nil
}

func toTicketResults(results []engine.Result) []transport.TicketResult {
	out := make([]transport.TicketResult, 0, len(results))
	for _, r := range results {
		out = append(out, toTicketResult(r))
	}
	return out
}

func toTicketResult(r engine.Result) transport.TicketResult {
	res := transport.TicketResult{Outcome: string(r.Outcome)}
	if r.TicketID != uuid.Nil {
		id := r.TicketID
		res.TicketID = &id
	}
	if r.Err != nil {
		res.Error = r.Err.Error()
	}
	for _, s := range r.Slots {
		res.Slots = append(res.Slots, transport.SlotOptionResponse(s))
	}
	return res
}
