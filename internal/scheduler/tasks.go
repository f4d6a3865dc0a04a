package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskDeliverOutbox is the asynq task type for a single outbox delivery.
const TaskDeliverOutbox = "crm:outbox:deliver"

var errMissingOutboxID = errors.New("outbox id missing")

type deliverOutboxPayload struct {
	OutboxID uuid.UUID `json:"outboxId"`
}

func newDeliverOutboxTask(outboxID uuid.UUID) (*asynq.Task, error) {
	if outboxID == uuid.Nil {
		return nil, errMissingOutboxID
	}
	data, err := json.Marshal(deliverOutboxPayload{OutboxID: outboxID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeliverOutbox, data), nil
}

// outboxIDFromTask decodes the record id carried by a delivery task. Decoding
// failures are wrapped with asynq.SkipRetry since a malformed task never heals.
func outboxIDFromTask(task *asynq.Task) (uuid.UUID, error) {
	var payload deliverOutboxPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, fmt.Errorf("%w: decode %s: %v", asynq.SkipRetry, task.Type(), err)
	}
	if payload.OutboxID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %v", asynq.SkipRetry, errMissingOutboxID)
	}
	return payload.OutboxID, nil
}
