package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"repairdesk_backend/internal/availability"
	"repairdesk_backend/internal/events"
	"repairdesk_backend/internal/settings"
	"repairdesk_backend/internal/tickets"
	"repairdesk_backend/platform/apperr"
	"repairdesk_backend/platform/logger"
	"repairdesk_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is how many tickets one batch sweep processes.
	DefaultBatchSize = 5

	defaultStaleLockMaxAge = 5 * time.Minute
	candidateFetchLimit    = 25
	batchConcurrency       = 2
)

// Options tunes an Engine.
type Options struct {
	Location        *time.Location
	PhoneRegion     string
	StaleLockMaxAge time.Duration
	Now             func() time.Time
}

// Engine proposes appointment slots for service requests. It keeps no state
// between invocations; all coordination goes through the store's lock column.
type Engine struct {
	store        TicketStore
	availability AvailabilityQuery
	dispatcher   Dispatcher
	bus          events.Bus
	log          *logger.Logger
	loc          *time.Location
	phoneRegion  string
	staleAge     time.Duration
	now          func() time.Time
}

// New creates an Engine. dispatcher and bus may be nil.
func New(store TicketStore, query AvailabilityQuery, dispatcher Dispatcher, bus events.Bus, log *logger.Logger, opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.StaleLockMaxAge <= 0 {
		opts.StaleLockMaxAge = defaultStaleLockMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = phone.DefaultRegion
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		store:        store,
		availability: query,
		dispatcher:   dispatcher,
		bus:          bus,
		log:          log,
		loc:          opts.Location,
		phoneRegion:  opts.PhoneRegion,
		staleAge:     opts.StaleLockMaxAge,
		now:          opts.Now,
	}
}

// ProcessTicket handles one specific request.
func (e *Engine) ProcessTicket(ctx context.Context, cfg settings.Settings, id uuid.UUID) (Result, error) {
	if !cfg.Enabled() {
		return e.record(Result{TicketID: id, Outcome: OutcomeSkippedDisabled}), nil
	}
	return e.process(ctx, cfg.SlotSelection.Normalize(), id)
}

// ProcessNext handles the single highest-priority eligible request.
func (e *Engine) ProcessNext(ctx context.Context, cfg settings.Settings) (Result, error) {
	if !cfg.Enabled() {
		return e.record(Result{Outcome: OutcomeSkippedDisabled}), nil
	}

	candidates, err := e.FindEligible(ctx, 1)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		return Result{Outcome: OutcomeNoEligible}, nil
	}
	return e.process(ctx, cfg.SlotSelection.Normalize(), candidates[0].ID)
}

// ProcessBatch handles up to limit eligible requests in priority order.
func (e *Engine) ProcessBatch(ctx context.Context, cfg settings.Settings, limit int) ([]Result, error) {
	if !cfg.Enabled() {
		return []Result{e.record(Result{Outcome: OutcomeSkippedDisabled})}, nil
	}
	if limit < 1 {
		limit = DefaultBatchSize
	}

	candidates, err := e.FindEligible(ctx, limit)
	if err != nil {
		return nil, err
	}

	sel := cfg.SlotSelection.Normalize()
	results := make([]Result, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, t := range candidates {
		g.Go(func() error {
			res, err := e.process(gctx, sel, t.ID)
			if err != nil {
				res = Result{TicketID: t.ID, Outcome: OutcomeFailed, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// FindEligible returns up to limit eligible requests ordered by priority:
// latest creation day first, oldest first within a day.
func (e *Engine) FindEligible(ctx context.Context, limit int) ([]tickets.Ticket, error) {
	fetch := candidateFetchLimit
	if limit > fetch {
		fetch = limit
	}
	items, err := e.store.ListEligible(ctx, fetch)
	if err != nil {
		return nil, apperr.Unavailable("failed to list eligible tickets", err)
	}

	ordered := OrderByPriority(items, e.loc)
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

// ReleaseStaleLocks clears locks older than the configured maximum age on
// requests that still have no proposal.
func (e *Engine) ReleaseStaleLocks(ctx context.Context) (int, error) {
	released, err := e.store.ReleaseStaleLocks(ctx, e.now().Add(-e.staleAge))
	if err != nil {
		return 0, fmt.Errorf("release stale locks: %w", err)
	}
	if released > 0 {
		e.log.Warn("released stale processing locks", "count", released)
	}
	return released, nil
}

// OrderByPriority returns a sorted copy of items.
func OrderByPriority(items []tickets.Ticket, loc *time.Location) []tickets.Ticket {
	out := append([]tickets.Ticket(nil), items...)
	tickets.SortByPriority(out, loc)
	return out
}

func (e *Engine) process(ctx context.Context, sel settings.SlotSelection, id uuid.UUID) (res Result, err error) {
	res = Result{TicketID: id}

	ticket, err := e.store.AcquireLock(ctx, id, e.now())
	if errors.Is(err, tickets.ErrLockNotAcquired) {
		return e.record(e.classifyLockFailure(ctx, id)), nil
	}
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return e.record(res), nil
	}

	attached := false
	defer func() {
		r := recover()
		if !attached {
			if releaseErr := e.store.ReleaseLock(context.WithoutCancel(ctx), id); releaseErr != nil {
				e.log.WithTicketID(id.String()).Error("failed to release processing lock", "error", releaseErr)
			}
		}
		if r != nil {
			res = e.record(Result{TicketID: id, Outcome: OutcomeFailed, Err: fmt.Errorf("panic: %v", r)})
			err = nil
		}
	}()

	all, err := e.SearchSlots(ctx, ticket, sel)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return e.record(res), nil
	}

	if len(all) == 0 {
		if err := e.store.AttachProposal(ctx, id, tickets.NoSlotsProposal(e.now())); err != nil {
			if errors.Is(err, tickets.ErrNotOpen) {
				return e.record(e.closedDuringSearch(id)), nil
			}
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("record no slots: %w", err)
			return e.record(res), nil
		}
		attached = true
		e.publish(ctx, events.NoSlotsFound{
			BaseEvent:     events.NewBaseEventAt(e.now()),
			TicketID:      id,
			OriginChannel: string(ticket.OriginChannel),
			SearchDays:    sel.SearchDays,
		})
		res.Outcome = OutcomeNoSlots
		return e.record(res), nil
	}

	count := DecideSlotCount(len(all), sel.SlotsToOffer)
	options := e.toOptions(SelectSlots(all, count, sel.Strategy, e.loc))
	proposal := tickets.NewProposal(options, e.now(), sel.TimeoutMinutes)

	if err := e.store.AttachProposal(ctx, id, proposal); err != nil {
		if errors.Is(err, tickets.ErrNotOpen) {
			return e.record(e.closedDuringSearch(id)), nil
		}
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("attach proposal: %w", err)
		return e.record(res), nil
	}
	attached = true

	e.notify(ctx, ticket, proposal)
	e.publish(ctx, e.proposalCreated(ticket, proposal))

	res.Outcome = OutcomeProposed
	res.Slots = options
	return e.record(res), nil
}

// closedDuringSearch reports a request that was closed or booked while it was
// locked. Nothing is sent; the deferred release drops the lock.
func (e *Engine) closedDuringSearch(id uuid.UUID) Result {
	e.log.WithTicketID(id.String()).Info("request closed while searching slots; proposal discarded")
	return Result{TicketID: id, Outcome: OutcomeSkippedIneligible}
}

// classifyLockFailure tells a lost race apart from a request that is no
// longer eligible.
func (e *Engine) classifyLockFailure(ctx context.Context, id uuid.UUID) Result {
	res := Result{TicketID: id, Outcome: OutcomeSkippedRaceLost}
	current, err := e.store.GetByID(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			res.Outcome = OutcomeSkippedIneligible
			res.Err = err
		}
		return res
	}
	if current.ProcessingLock == nil {
		res.Outcome = OutcomeSkippedIneligible
	}
	return res
}

// SearchSlots asks the availability query for each of the next searchDays
// days, starting tomorrow, and returns the first non-empty day's list.
func (e *Engine) SearchSlots(ctx context.Context, t tickets.Ticket, sel settings.SlotSelection) ([]availability.Slot, error) {
	duration := t.DurationMinutes
	if duration <= 0 {
		duration = sel.SlotDurationMinutes
	}

	today := e.now().In(e.loc)
	base := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, e.loc)

	for offset := 1; offset <= sel.SearchDays; offset++ {
		day := base.AddDate(0, 0, offset)
		slots, err := e.availability.SlotsForDay(ctx, availability.Request{
			Date:            day,
			DurationMinutes: duration,
			ServiceZone:     t.ServiceZone,
		})
		if err != nil {
			return nil, fmt.Errorf("search slots for %s: %w", day.Format(dateLayout), err)
		}
		if len(slots) > 0 {
			return slots, nil
		}
	}
	return nil, nil
}

func (e *Engine) toOptions(slots []availability.Slot) []tickets.SlotOption {
	options := make([]tickets.SlotOption, 0, len(slots))
	for _, s := range slots {
		start := s.Start.In(e.loc)
		end := s.End.In(e.loc)
		options = append(options, tickets.SlotOption{
			Date:           start.Format(dateLayout),
			StartTime:      start.Format(clockLayout),
			EndTime:        end.Format(clockLayout),
			TechnicianID:   s.TechnicianID,
			TechnicianName: s.TechnicianName,
		})
	}
	return options
}

// notify tells the customer about a new proposal on the channel they used.
// App customers see the proposal through their own subscription.
func (e *Engine) notify(ctx context.Context, t tickets.Ticket, p tickets.Proposal) {
	if e.dispatcher == nil {
		return
	}
	log := e.log.WithTicketID(t.ID.String())

	switch t.OriginChannel {
	case tickets.OriginWhatsApp:
		if !phone.IsDialable(t.ContactPhone, e.phoneRegion) {
			log.Warn("skipping whatsapp proposal: no usable contact phone")
			return
		}
		if err := e.dispatcher.SendWhatsApp(ctx, t.ContactPhone, FormatWhatsAppProposal(t, p, e.loc)); err != nil {
			log.Error("failed to send whatsapp proposal", "error", err)
		}
	case tickets.OriginBackoffice:
		if strings.TrimSpace(t.ContactEmail) == "" {
			return
		}
		msg := ProposalEmail{
			TicketID:    t.ID,
			To:          t.ContactEmail,
			ContactName: t.ContactName,
			Appliance:   t.Appliance,
			Options:     describeOptions(p.Slots, e.loc),
		}
		if p.ExpiresAt != nil {
			msg.ExpiresAt = p.ExpiresAt.In(e.loc)
		}
		if err := e.dispatcher.SendProposalEmail(ctx, msg); err != nil {
			log.Error("failed to send proposal email", "error", err)
		}
	}
}

func (e *Engine) proposalCreated(t tickets.Ticket, p tickets.Proposal) events.ProposalCreated {
	slots := make([]events.ProposedSlot, 0, len(p.Slots))
	for _, s := range p.Slots {
		slots = append(slots, events.ProposedSlot(s))
	}
	evt := events.ProposalCreated{
		BaseEvent:     events.NewBaseEventAt(e.now()),
		TicketID:      t.ID,
		OriginChannel: string(t.OriginChannel),
		ContactName:   t.ContactName,
		ContactPhone:  t.ContactPhone,
		ContactEmail:  t.ContactEmail,
		Appliance:     t.Appliance,
		Slots:         slots,
	}
	if p.ExpiresAt != nil {
		evt.ExpiresAt = *p.ExpiresAt
	}
	return evt
}

func (e *Engine) publish(ctx context.Context, evt events.Event) {
	if e.bus != nil {
		e.bus.Publish(ctx, evt)
	}
}

func (e *Engine) record(res Result) Result {
	ticketID := ""
	if res.TicketID != uuid.Nil {
		ticketID = res.TicketID.String()
	}
	e.log.AutopilotOutcome(ticketID, string(res.Outcome), len(res.Slots), res.Err)
	return res
}
