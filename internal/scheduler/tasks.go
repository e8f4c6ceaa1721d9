package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskAutopilotSweep runs one scheduled autopilot pass (single or batch).
const TaskAutopilotSweep = "autopilot.sweep"

// TaskProcessTicket proposes slots for one ticket, enqueued by the webhook.
const TaskProcessTicket = "autopilot.process_ticket"

// TaskTimeoutSweep expires proposals nobody answered.
const TaskTimeoutSweep = "autopilot.timeout_sweep"

type ProcessTicketPayload struct {
	TicketID string `json:"ticketId"`
}

func NewAutopilotSweepTask() *asynq.Task {
	return asynq.NewTask(TaskAutopilotSweep, nil)
}

func NewTimeoutSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTimeoutSweep, nil)
}

func NewProcessTicketTask(payload ProcessTicketPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcessTicket, data), nil
}

func ParseProcessTicketPayload(task *asynq.Task) (ProcessTicketPayload, error) {
	var payload ProcessTicketPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessTicketPayload{}, err
	}
	return payload, nil
}
