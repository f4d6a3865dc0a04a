// Package notification fans domain events out to browsers, email and the
// HubSpot/Slack integrations. Every delivery is best effort: failures are
// logged and never reach the request that caused the event.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"crm_backend/internal/email"
	"crm_backend/internal/events"
	apphttp "crm_backend/internal/http"
	"crm_backend/internal/integrations"
	"crm_backend/internal/leads/ports"
	notifhandler "crm_backend/internal/notification/handler"
	"crm_backend/internal/notification/outbox"
	"crm_backend/internal/notification/sse"
	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

var channelTimeouts = map[Channel]time.Duration{
	ChannelRealtime: 5 * time.Second,
	ChannelEmail:    20 * time.Second,
	ChannelSlack:    15 * time.Second,
	ChannelHubSpot:  15 * time.Second,
}

var errEmailNotConfigured = errors.New("email delivery not configured")

// UserDirectory resolves the address of a lead assignee.
type UserDirectory interface {
	GetActiveUser(ctx context.Context, userID uuid.UUID) (ports.UserInfo, error)
}

// WebhookNotifier is the integrations service.
type WebhookNotifier interface {
	Notify(ctx context.Context, kind integrations.Kind, event events.Event) error
	Deliver(ctx context.Context, p integrations.Payload) error
}

// RealtimeGateway pushes events to connected clients.
type RealtimeGateway interface {
	EmitToUser(userID uuid.UUID, eventType string, payload any)
	Broadcast(eventType string, payload any)
}

// OutboxStore is the subset of the outbox repository the module uses.
type OutboxStore interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender   email.Sender
	users    UserDirectory
	cfg      config.NotificationConfig
	log      *logger.Logger
	realtime RealtimeGateway
	gateway  *sse.Gateway
	webhooks WebhookNotifier
	outbox   OutboxStore
	feed     notifhandler.FeedReader
}

// New creates a new notification module.
func New(sender email.Sender, users UserDirectory, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{sender: sender, users: users, cfg: cfg, log: log}
}

func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers the feed and, when a gateway is set, the event stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.feed == nil {
		return
	}
	h := notifhandler.NewHTTPHandler(m.feed, m.gateway)
	h.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// SetSSE injects the gateway used for real-time pushes and the stream route.
func (m *Module) SetSSE(g *sse.Gateway) {
	m.gateway = g
	m.realtime = g
}

// SetRealtime replaces the real-time channel without mounting a stream.
func (m *Module) SetRealtime(r RealtimeGateway) { m.realtime = r }

// SetWebhooks injects the integrations service.
func (m *Module) SetWebhooks(w WebhookNotifier) { m.webhooks = w }

// SetNotificationOutbox routes email and webhook deliveries through the
// outbox so the scheduler process delivers them.
func (m *Module) SetNotificationOutbox(store OutboxStore) { m.outbox = store }

// SetFeed enables the /notifications routes.
func (m *Module) SetFeed(feed notifhandler.FeedReader) { m.feed = feed }

// RegisterHandlers subscribes the module to every event it fans out.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.UserRegistered{}.EventName(), m)
	bus.Subscribe(events.UserLoggedIn{}.EventName(), m)
	bus.Subscribe(events.PasswordResetRequested{}.EventName(), m)
	bus.Subscribe(events.PasswordResetCompleted{}.EventName(), m)

	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadReassigned{}.EventName(), m)
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), m)
	bus.Subscribe(events.ActivityCreated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// RegisterOutboxHandler subscribes to outbox due events. Only the process
// running the scheduler worker needs it.
func (m *Module) RegisterOutboxHandler(bus events.Bus) {
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)
}

// Handle executes every planned delivery for event concurrently and waits for
// them. Each delivery has its own timeout and logs its own failure.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	if due, ok := event.(events.NotificationOutboxDue); ok {
		return m.handleNotificationOutboxDue(ctx, due)
	}

	deliveries := Plan(event)
	if len(deliveries) == 0 {
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}

	var wg sync.WaitGroup
	for _, d := range deliveries {
		wg.Add(1)
		go func(d Delivery) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					m.log.DeliveryFailed(string(d.Channel), event.EventName(), fmt.Errorf("panic: %v", r))
				}
			}()

			dctx, cancel := context.WithTimeout(ctx, channelTimeouts[d.Channel])
			defer cancel()
			if err := m.dispatch(dctx, d, event); err != nil {
				m.log.DeliveryFailed(string(d.Channel), event.EventName(), err)
			}
		}(d)
	}
	wg.Wait()
	return nil
}

func (m *Module) dispatch(ctx context.Context, d Delivery, event events.Event) error {
	switch d.Channel {
	case ChannelRealtime:
		return m.pushRealtime(d, event)
	case ChannelEmail:
		return m.sendEmail(ctx, d, event)
	case ChannelSlack:
		return m.notifyWebhook(ctx, integrations.KindSlack, event)
	case ChannelHubSpot:
		return m.notifyWebhook(ctx, integrations.KindHubSpot, event)
	}
	return fmt.Errorf("unknown channel %q", d.Channel)
}

func (m *Module) pushRealtime(d Delivery, event events.Event) error {
	if m.realtime == nil {
		return nil
	}
	payload := realtimePayload(event)
	if d.Broadcast {
		m.realtime.Broadcast(d.Name, payload)
		return nil
	}
	m.realtime.EmitToUser(d.To, d.Name, payload)
	return nil
}

func (m *Module) sendEmail(ctx context.Context, d Delivery, event events.Event) error {
	to, err := m.resolveAddress(ctx, d)
	if err != nil {
		return err
	}
	if to == "" {
		m.log.Debug("email recipient not found; skipping", "template", d.Name, "user_id", d.To)
		return nil
	}

	msg, err := m.renderEmail(to, event)
	if err != nil {
		return err
	}

	// reset links are live credentials and are never persisted
	if m.outbox != nil && d.Name != TemplatePasswordReset {
		return m.enqueue(ctx, outbox.KindEmail, d.Name, msg)
	}
	return m.deliverEmail(ctx, msg)
}

func (m *Module) resolveAddress(ctx context.Context, d Delivery) (string, error) {
	if d.Address != "" {
		return d.Address, nil
	}
	if m.users == nil {
		return "", nil
	}
	user, err := m.users.GetActiveUser(ctx, d.To)
	if errors.Is(err, ports.ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve recipient: %w", err)
	}
	return user.Email, nil
}

func (m *Module) renderEmail(to string, event events.Event) (email.Message, error) {
	switch e := event.(type) {
	case events.UserRegistered:
		return email.WelcomeEmail(to, e.Name, e.Role)
	case events.UserLoggedIn:
		return email.LoginEmail(to, e.Name, e.Role, e.OccurredAt())
	case events.PasswordResetRequested:
		return email.PasswordResetEmail(to, e.Name, m.resetURL(e.ResetToken), m.cfg.GetResetTokenTTL())
	case events.PasswordResetCompleted:
		return email.PasswordResetSuccessEmail(to, e.Name)
	case events.LeadCreated:
		return email.LeadCreatedEmail(to, e.Lead.Name, e.Lead.Email, e.Lead.Status, e.ActorName)
	case events.LeadReassigned:
		return email.LeadReassignedEmail(to, e.Lead.Name, e.Lead.Email, e.Lead.Status, e.ActorName)
	case events.LeadStatusChanged:
		return email.LeadStatusEmail(to, e.Lead.Name, e.OldStatus, e.NewStatus, e.ActorName)
	case events.ActivityCreated:
		description := ""
		if e.Description != nil {
			description = *e.Description
		}
		return email.ActivityEmail(to, e.Type, e.Title, description, e.Lead.Name, e.AuthorName)
	}
	return email.Message{}, fmt.Errorf("no email template for %s", event.EventName())
}

func (m *Module) resetURL(token string) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}

func (m *Module) deliverEmail(ctx context.Context, msg email.Message) error {
	result := m.sender.Send(ctx, msg)
	if result.NotConfigured {
		m.log.Debug("email not configured; skipping", "subject", msg.Subject)
		return nil
	}
	if !result.Success {
		if result.Err != nil {
			return result.Err
		}
		return errors.New("email send failed")
	}
	m.log.Info("email sent", "subject", msg.Subject, "message_id", result.MessageID)
	return nil
}

func (m *Module) notifyWebhook(ctx context.Context, kind integrations.Kind, event events.Event) error {
	if m.webhooks == nil {
		return nil
	}
	if m.outbox == nil {
		return m.webhooks.Notify(ctx, kind, event)
	}

	payload, ok := integrations.BuildPayload(kind, event)
	if !ok {
		return nil
	}
	return m.enqueue(ctx, string(kind), payload.Event, payload)
}

func (m *Module) enqueue(ctx context.Context, kind, template string, payload any) error {
	id, err := m.outbox.Insert(ctx, outbox.InsertParams{Kind: kind, Template: template, Payload: payload})
	if err != nil {
		return fmt.Errorf("insert outbox record: %w", err)
	}
	m.log.Debug("notification queued in outbox", "outboxId", id, "kind", kind, "template", template)
	return nil
}

type leadPayload struct {
	Lead      events.LeadSnapshot `json:"lead"`
	CreatedBy string              `json:"createdBy,omitempty"`
}

type assignedPayload struct {
	Lead       events.LeadSnapshot `json:"lead"`
	AssignedBy string              `json:"assignedBy"`
}

type statusPayload struct {
	Lead      events.LeadSnapshot `json:"lead"`
	OldStatus string              `json:"oldStatus"`
	NewStatus string              `json:"newStatus"`
	UpdatedBy string              `json:"updatedBy"`
}

type activitySummary struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
}

type activityPayload struct {
	Activity  activitySummary     `json:"activity"`
	Lead      events.LeadSnapshot `json:"lead"`
	CreatedBy string              `json:"createdBy"`
}

type userSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type userPayload struct {
	User userSummary `json:"user"`
}

func realtimePayload(event events.Event) any {
	switch e := event.(type) {
	case events.LeadCreated:
		return leadPayload{Lead: e.Lead, CreatedBy: e.ActorName}
	case events.LeadReassigned:
		return assignedPayload{Lead: e.Lead, AssignedBy: e.ActorName}
	case events.LeadStatusChanged:
		return statusPayload{Lead: e.Lead, OldStatus: e.OldStatus, NewStatus: e.NewStatus, UpdatedBy: e.ActorName}
	case events.ActivityCreated:
		return activityPayload{
			Activity:  activitySummary{ID: e.ActivityID, Type: e.Type, Title: e.Title, Description: e.Description},
			Lead:      e.Lead,
			CreatedBy: e.AuthorName,
		}
	case events.UserRegistered:
		return userPayload{User: userSummary{ID: e.UserID, Name: e.Name, Email: e.Email, Role: e.Role}}
	}
	return nil
}

var _ apphttp.Module = (*Module)(nil)
