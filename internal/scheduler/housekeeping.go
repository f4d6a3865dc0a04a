package scheduler

import (
	"context"
	"time"

	"crm_backend/platform/logger"
)

const (
	defaultHousekeepingInterval = time.Hour
	defaultOutboxRetention      = 7 * 24 * time.Hour
)

type ResetTokenPurger interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type OutboxPurger interface {
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Housekeeping periodically clears expired password reset tokens and old
// finished outbox rows.
type Housekeeping struct {
	tokens          ResetTokenPurger
	outbox          OutboxPurger
	log             *logger.Logger
	interval        time.Duration
	outboxRetention time.Duration
	now             func() time.Time
}

func NewHousekeeping(tokens ResetTokenPurger, outbox OutboxPurger, log *logger.Logger, interval, outboxRetention time.Duration) *Housekeeping {
	if interval <= 0 {
		interval = defaultHousekeepingInterval
	}
	if outboxRetention <= 0 {
		outboxRetention = defaultOutboxRetention
	}

	return &Housekeeping{
		tokens:          tokens,
		outbox:          outbox,
		log:             log,
		interval:        interval,
		outboxRetention: outboxRetention,
		now:             time.Now,
	}
}

func (h *Housekeeping) Run(ctx context.Context) {
	if h == nil {
		return
	}

	h.cleanup(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanup(ctx)
		}
	}
}

func (h *Housekeeping) cleanup(ctx context.Context) {
	now := h.now()

	if h.tokens != nil {
		cleared, err := h.tokens.ClearExpiredResetTokens(ctx, now)
		if err != nil {
			h.log.Warn("reset token cleanup failed", "error", err)
		} else if cleared > 0 {
			h.log.Info("reset token cleanup cleared expired tokens", "cleared", cleared)
		}
	}

	if h.outbox != nil {
		deleted, err := h.outbox.DeleteFinishedBefore(ctx, now.Add(-h.outboxRetention))
		if err != nil {
			h.log.Warn("outbox cleanup failed", "error", err)
		} else if deleted > 0 {
			h.log.Info("outbox cleanup deleted finished records", "deleted", deleted)
		}
	}
}
