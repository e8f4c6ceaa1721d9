// Package service runs the live-location pipeline: raw fixes go through the
// GPS filter, accepted positions are cached and broadcast, and an optional
// animator turns them into smooth frames for dashboards.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"repairdesk_backend/internal/notification/sse"
	"repairdesk_backend/internal/tracking/animation"
	"repairdesk_backend/internal/tracking/gps"
	"repairdesk_backend/platform/apperr"
	"repairdesk_backend/platform/geo"
	"repairdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Fix is one raw location report from a technician device.
type Fix struct {
	Position   geo.Position
	Accuracy   float64
	RecordedAt time.Time
}

// LivePosition is the latest filtered position of a technician.
type LivePosition struct {
	TechnicianID uuid.UUID    `json:"technicianId"`
	Position     geo.Position `json:"position"`
	Bearing      float64      `json:"bearing"`
	Accuracy     float64      `json:"accuracy"`
	RecordedAt   time.Time    `json:"recordedAt"`
	ReceivedAt   time.Time    `json:"receivedAt"`
}

// IngestResult reports what the filter did with a fix.
type IngestResult struct {
	Accepted bool
	Decision gps.Decision
	Position *LivePosition
}

// Publisher receives live events. *sse.Service satisfies it.
type Publisher interface {
	Publish(event sse.Event)
}

// Options tunes the pipeline.
type Options struct {
	Filter    gps.FilterConfig
	Animate   bool
	Animation animation.Config
	// Scheduler drives animation frames. Nil uses a timer scheduler.
	Scheduler animation.FrameScheduler
	Now       func() time.Time
}

type stream struct {
	mu       sync.Mutex
	filter   *gps.Filter
	animator *animation.Animator
	last     *LivePosition
}

// Service owns one stream per technician.
type Service struct {
	mu      sync.Mutex
	streams map[uuid.UUID]*stream
	cache   PositionCache
	pub     Publisher
	log     *logger.Logger
	opts    Options
}

// New creates the tracking service. cache and pub may be nil.
func New(cache PositionCache, pub Publisher, log *logger.Logger, opts Options) *Service {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Animate && opts.Scheduler == nil {
		opts.Scheduler = animation.NewTimerFrameScheduler(animation.DefaultFrameInterval)
	}
	return &Service{
		streams: make(map[uuid.UUID]*stream),
		cache:   cache,
		pub:     pub,
		log:     log,
		opts:    opts,
	}
}

func (s *Service) stream(id uuid.UUID) *stream {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[id]
	if ok {
		return st
	}
	st = &stream{filter: gps.NewFilter(s.opts.Filter)}
	if s.opts.Animate {
		st.animator = animation.New(s.opts.Scheduler, s.animationConfig(id))
	}
	s.streams[id] = st
	return st
}

func (s *Service) animationConfig(id uuid.UUID) animation.Config {
	cfg := s.opts.Animation
	techID := id
	cfg.OnUpdate = func(f animation.Frame) {
		s.publish(sse.Event{Type: sse.EventLocationFrame, TechnicianID: &techID, Data: f})
	}
	cfg.OnComplete = nil
	return cfg
}

// Ingest feeds one raw fix through the technician's filter.
func (s *Service) Ingest(ctx context.Context, technicianID uuid.UUID, fix Fix) (IngestResult, error) {
	st := s.stream(technicianID)

	st.mu.Lock()
	out, decision := st.filter.Decide(fix.Position)
	if decision == gps.DecisionBad {
		st.mu.Unlock()
		return IngestResult{Decision: decision}, apperr.Validation("invalid coordinates")
	}
	if decision == gps.DecisionJitter || decision == gps.DecisionNoise {
		st.mu.Unlock()
		s.log.Debug("location fix dropped", "technician_id", technicianID.String(), "decision", string(decision))
		return IngestResult{Decision: decision}, nil
	}

	now := s.opts.Now()
	recordedAt := fix.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}
	pos := LivePosition{
		TechnicianID: technicianID,
		Position:     out,
		Accuracy:     fix.Accuracy,
		RecordedAt:   recordedAt,
		ReceivedAt:   now,
	}
	if st.last != nil {
		pos.Bearing = st.last.Bearing
		if geo.Distance(st.last.Position, out) > 0 {
			pos.Bearing = geo.Bearing(st.last.Position, out)
		}
	}
	st.last = &pos

	// The animator must see fixes in the same order as st.last.
	s.publish(sse.Event{Type: sse.EventLocationFix, TechnicianID: &technicianID, Data: pos})
	if st.animator != nil {
		st.animator.AnimateTo(out, animation.AnimateOptions{})
	}
	st.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Store(ctx, pos); err != nil {
			s.log.Warn("failed to cache position", "technician_id", technicianID.String(), "error", err)
		}
	}

	result := pos
	return IngestResult{Accepted: true, Decision: decision, Position: &result}, nil
}

// LastPosition returns the latest filtered position, falling back to the
// shared cache for technicians reporting to another instance.
func (s *Service) LastPosition(ctx context.Context, technicianID uuid.UUID) (LivePosition, error) {
	s.mu.Lock()
	st, ok := s.streams[technicianID]
	s.mu.Unlock()

	if ok {
		st.mu.Lock()
		last := st.last
		st.mu.Unlock()
		if last != nil {
			return *last, nil
		}
	}

	if s.cache == nil {
		return LivePosition{}, apperr.NotFound("no live position for technician")
	}
	pos, err := s.cache.Get(ctx, technicianID)
	if errors.Is(err, ErrPositionNotFound) {
		return LivePosition{}, apperr.NotFound("no live position for technician")
	}
	if err != nil {
		return LivePosition{}, apperr.Unavailable("position cache unavailable", err)
	}
	return pos, nil
}

// Reset forgets a technician's stream, e.g. when a shift ends.
func (s *Service) Reset(technicianID uuid.UUID) {
	s.mu.Lock()
	st, ok := s.streams[technicianID]
	delete(s.streams, technicianID)
	s.mu.Unlock()

	if ok && st.animator != nil {
		st.animator.Destroy()
	}
}

// Close stops every animator.
func (s *Service) Close() {
	s.mu.Lock()
	streams := s.streams
	s.streams = make(map[uuid.UUID]*stream)
	s.mu.Unlock()

	for _, st := range streams {
		if st.animator != nil {
			st.animator.Destroy()
		}
	}
}

func (s *Service) publish(e sse.Event) {
	if s.pub != nil {
		s.pub.Publish(e)
	}
}
