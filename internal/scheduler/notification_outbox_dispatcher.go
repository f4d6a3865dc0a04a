package scheduler

import (
	"context"
	"time"

	"crm_backend/internal/notification/outbox"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	outboxPollInterval = 2 * time.Second
	outboxClaimBatch   = 50
)

type outboxClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

type outboxEnqueuer interface {
	EnqueueOutboxDue(ctx context.Context, outboxID uuid.UUID, runAt time.Time) error
}

// NotificationOutboxDispatcher polls the outbox and turns due rows into
// asynq tasks.
type NotificationOutboxDispatcher struct {
	client outboxEnqueuer
	repo   outboxClaimer
	log    *logger.Logger
}

func NewNotificationOutboxDispatcher(client outboxEnqueuer, repo outboxClaimer, log *logger.Logger) *NotificationOutboxDispatcher {
	return &NotificationOutboxDispatcher{client: client, repo: repo, log: log}
}

func (d *NotificationOutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(outboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.dispatchOnce(ctx)
	}
}

// dispatchOnce claims one batch and returns the number of rows enqueued.
// Rows that cannot be enqueued go back to pending.
func (d *NotificationOutboxDispatcher) dispatchOnce(ctx context.Context) int {
	records, err := d.repo.ClaimPending(ctx, outboxClaimBatch)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return 0
	}

	enqueued := 0
	for _, rec := range records {
		if err := d.client.EnqueueOutboxDue(ctx, rec.ID, rec.RunAt); err != nil {
			msg := err.Error()
			if markErr := d.repo.MarkPending(ctx, rec.ID, &msg); markErr != nil {
				d.log.Error("outbox record stuck in enqueued", "outboxId", rec.ID, "error", markErr)
			}
			d.log.Warn("outbox enqueue failed", "outboxId", rec.ID, "error", err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		d.log.Debug("outbox records enqueued", "count", enqueued)
	}
	return enqueued
}
