package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"crm_backend/internal/email"
	"crm_backend/internal/events"
	"crm_backend/internal/integrations"
	"crm_backend/internal/notification/outbox"
)

const invalidOutboxPayloadPrefix = "invalid payload: "

// handleNotificationOutboxDue delivers one outbox record exactly once. A
// failed delivery is marked failed and not retried.
func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox repository not configured; skipping outbox due event", "outboxId", e.OutboxID)
		return nil
	}

	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if err != nil {
		return fmt.Errorf("load outbox record: %w", err)
	}
	claimed, err := m.outbox.MarkProcessing(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("mark outbox processing: %w", err)
	}
	if !claimed {
		m.log.Debug("outbox record already taken; skipping", "outboxId", rec.ID, "status", rec.Status)
		return nil
	}

	if err := m.deliverRecord(ctx, rec); err != nil {
		m.log.DeliveryFailed(rec.Kind, rec.Template, err)
		if markErr := m.outbox.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			m.log.Error("failed to mark outbox record failed", "outboxId", rec.ID, "error", markErr)
		}
		return nil
	}

	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		m.log.Error("failed to mark outbox record succeeded", "outboxId", rec.ID, "error", err)
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID, "kind", rec.Kind, "template", rec.Template)
	return nil
}

func (m *Module) deliverRecord(ctx context.Context, rec outbox.Record) error {
	switch rec.Kind {
	case outbox.KindEmail:
		var msg email.Message
		if err := json.Unmarshal(rec.Payload, &msg); err != nil {
			return fmt.Errorf("%s%w", invalidOutboxPayloadPrefix, err)
		}
		result := m.sender.Send(ctx, msg)
		if result.NotConfigured {
			return errEmailNotConfigured
		}
		if !result.Success {
			if result.Err != nil {
				return result.Err
			}
			return fmt.Errorf("email send failed")
		}
		return nil
	case outbox.KindSlack, outbox.KindHubSpot:
		if m.webhooks == nil {
			return fmt.Errorf("integrations not configured")
		}
		var payload integrations.Payload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return fmt.Errorf("%s%w", invalidOutboxPayloadPrefix, err)
		}
		return m.webhooks.Deliver(ctx, payload)
	}
	return fmt.Errorf("unsupported outbox kind %q", rec.Kind)
}
