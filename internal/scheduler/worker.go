package scheduler

import (
	"context"
	"fmt"

	"repairdesk_backend/internal/autopilot/engine"
	"repairdesk_backend/internal/autopilot/transport"
	"repairdesk_backend/platform/config"
	"repairdesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AutopilotRunner is the autopilot service surface the worker drives.
type AutopilotRunner interface {
	RunScheduled(ctx context.Context) (transport.RunResponse, error)
	ProcessTicket(ctx context.Context, ticketID uuid.UUID) (engine.Result, error)
	SweepTimeouts(ctx context.Context) (transport.SweepResponse, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner AutopilotRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner AutopilotRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(runner, log)
	w.server = server
	return w, nil
}

func newWorker(runner AutopilotRunner, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Discard()
	}
	mux := asynq.NewServeMux()
	w := &Worker{mux: mux, runner: runner, log: log}

	mux.HandleFunc(TaskAutopilotSweep, w.handleAutopilotSweep)
	mux.HandleFunc(TaskProcessTicket, w.handleProcessTicket)
	mux.HandleFunc(TaskTimeoutSweep, w.handleTimeoutSweep)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleAutopilotSweep(ctx context.Context, _ *asynq.Task) error {
	resp, err := w.runner.RunScheduled(withInvocation(ctx, "cron"))
	if err != nil {
		return err
	}
	w.log.Info("autopilot sweep finished", "mode", string(resp.Mode), "processed", len(resp.Results))
	return nil
}

// handleProcessTicket never asks asynq to retry a bad payload.
func (w *Worker) handleProcessTicket(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseProcessTicketPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	ticketID, err := uuid.Parse(payload.TicketID)
	if err != nil {
		return fmt.Errorf("%w: invalid ticket id %q", asynq.SkipRetry, payload.TicketID)
	}

	result, err := w.runner.ProcessTicket(withInvocation(ctx, "webhook"), ticketID)
	if err != nil {
		return err
	}
	if result.Err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, result.Err)
	}
	return nil
}

func (w *Worker) handleTimeoutSweep(ctx context.Context, _ *asynq.Task) error {
	resp, err := w.runner.SweepTimeouts(withInvocation(ctx, "cron"))
	if err != nil {
		return err
	}
	if resp.Expired > 0 {
		w.log.Info("timeout sweep expired proposals", "checked", resp.Checked, "expired", resp.Expired)
	}
	return nil
}

func withInvocation(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, logger.InvocationKey, source)
}
