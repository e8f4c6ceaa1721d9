package scheduler

import (
	"context"
	"fmt"

	"repairdesk_backend/platform/config"
	"repairdesk_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the autopilot and timeout sweeps on their cron specs.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// PeriodicEntry is one registered cron trigger.
type PeriodicEntry struct {
	Spec string
	Task *asynq.Task
}

// Entries returns the triggers for cfg. Empty specs disable a trigger.
func Entries(cfg config.SchedulerConfig) []PeriodicEntry {
	var entries []PeriodicEntry
	if spec := cfg.GetAutopilotCron(); spec != "" {
		entries = append(entries, PeriodicEntry{Spec: spec, Task: NewAutopilotSweepTask()})
	}
	if spec := cfg.GetTimeoutSweepCron(); spec != "" {
		entries = append(entries, PeriodicEntry{Spec: spec, Task: NewTimeoutSweepTask()})
	}
	return entries
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: cfg.GetBusinessLocation(),
	})

	queue := queueName(cfg)
	for _, entry := range Entries(cfg) {
		if _, err := s.Register(entry.Spec, entry.Task, asynq.Queue(queue), asynq.MaxRetry(0)); err != nil {
			return nil, fmt.Errorf("register %s (%s): %w", entry.Task.Type(), entry.Spec, err)
		}
	}

	return &Periodic{scheduler: s, log: log}, nil
}

func (p *Periodic) Run(ctx context.Context) error {
	if p == nil || p.scheduler == nil {
		return nil
	}
	if err := p.scheduler.Start(); err != nil {
		return fmt.Errorf("start periodic scheduler: %w", err)
	}
	p.log.Info("periodic scheduler started")

	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}
