package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"crm_backend/internal/email"
	"crm_backend/internal/events"
	"crm_backend/internal/integrations"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/notification/outbox"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string           { return "https://app.example.com/" }
func (testNotificationConfig) GetResetTokenTTL() time.Duration { return time.Hour }

type testSender struct {
	mu       sync.Mutex
	messages []email.Message
	result   email.Result
}

func (s *testSender) Send(_ context.Context, msg email.Message) email.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.result
}

type testUsers map[uuid.UUID]ports.UserInfo

func (u testUsers) GetActiveUser(_ context.Context, id uuid.UUID) (ports.UserInfo, error) {
	info, ok := u[id]
	if !ok {
		return ports.UserInfo{}, ports.ErrUserNotFound
	}
	return info, nil
}

type pushed struct {
	userID    uuid.UUID
	event     string
	broadcast bool
}

type testRealtime struct {
	mu     sync.Mutex
	pushes []pushed
}

func (r *testRealtime) EmitToUser(userID uuid.UUID, event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushed{userID: userID, event: event})
}

func (r *testRealtime) Broadcast(event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushed{event: event, broadcast: true})
}

type testWebhooks struct {
	mu        sync.Mutex
	notified  []integrations.Kind
	delivered []integrations.Payload
	err       error
}

func (w *testWebhooks) Notify(_ context.Context, kind integrations.Kind, _ events.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notified = append(w.notified, kind)
	return w.err
}

func (w *testWebhooks) Deliver(_ context.Context, p integrations.Payload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delivered = append(w.delivered, p)
	return w.err
}

type memoryOutbox struct {
	mu      sync.Mutex
	records map[uuid.UUID]*outbox.Record
	errors  map[uuid.UUID]string
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{records: map[uuid.UUID]*outbox.Record{}, errors: map[uuid.UUID]string{}}
}

func (o *memoryOutbox) Insert(_ context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	raw, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	o.records[id] = &outbox.Record{ID: id, Kind: p.Kind, Template: p.Template, Payload: raw, Status: outbox.StatusPending}
	return id, nil
}

func (o *memoryOutbox) GetByID(_ context.Context, id uuid.UUID) (outbox.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[id]
	if !ok {
		return outbox.Record{}, errors.New("not found")
	}
	return *rec, nil
}

func (o *memoryOutbox) MarkProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec := o.records[id]
	if rec.Status != outbox.StatusPending && rec.Status != outbox.StatusEnqueued {
		return false, nil
	}
	rec.Status = outbox.StatusProcessing
	rec.Attempts++
	return true, nil
}

func (o *memoryOutbox) MarkSucceeded(_ context.Context, id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[id].Status = outbox.StatusSucceeded
	return nil
}

func (o *memoryOutbox) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records[id].Status = outbox.StatusFailed
	o.errors[id] = lastError
	return nil
}

func (o *memoryOutbox) only(t *testing.T, kind string) outbox.Record {
	t.Helper()
	for _, rec := range o.records {
		if rec.Kind == kind {
			return *rec
		}
	}
	t.Fatalf("no %s record in outbox", kind)
	return outbox.Record{}
}

type fixture struct {
	module   *Module
	sender   *testSender
	realtime *testRealtime
	webhooks *testWebhooks
	assignee uuid.UUID
}

func newFixture() fixture {
	assignee := uuid.New()
	sender := &testSender{result: email.Result{Success: true, MessageID: "<id@crm>"}}
	realtime := &testRealtime{}
	webhooks := &testWebhooks{}
	users := testUsers{assignee: {ID: assignee, Name: "Sam Seller", Email: "sam@example.com"}}

	m := New(sender, users, testNotificationConfig{}, logger.Discard())
	m.SetRealtime(realtime)
	m.SetWebhooks(webhooks)
	return fixture{module: m, sender: sender, realtime: realtime, webhooks: webhooks, assignee: assignee}
}

func (f fixture) leadCreated() events.LeadCreated {
	return events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		Lead: events.LeadSnapshot{
			ID:           uuid.New(),
			Name:         "Acme Corp",
			Email:        "buyer@acme.test",
			Status:       "New",
			AssignedToID: &f.assignee,
		},
		ActorName: "Admin User",
	}
}

func TestHandleLeadCreatedDeliversEveryChannel(t *testing.T) {
	f := newFixture()

	if err := f.module.Handle(context.Background(), f.leadCreated()); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(f.realtime.pushes) != 1 || f.realtime.pushes[0].userID != f.assignee || f.realtime.pushes[0].event != RealtimeLeadCreated {
		t.Fatalf("unexpected realtime pushes %+v", f.realtime.pushes)
	}
	if len(f.sender.messages) != 1 {
		t.Fatalf("expected one email, got %d", len(f.sender.messages))
	}
	msg := f.sender.messages[0]
	if msg.To != "sam@example.com" || msg.Subject != "New Lead Assigned: Acme Corp" {
		t.Fatalf("unexpected email %+v", msg)
	}
	if len(f.webhooks.notified) != 2 {
		t.Fatalf("expected slack and hubspot notifications, got %v", f.webhooks.notified)
	}
}

func TestHandleIsolatesChannelFailures(t *testing.T) {
	f := newFixture()
	f.sender.result = email.Result{Err: errors.New("smtp down")}
	f.webhooks.err = errors.New("slack down")

	if err := f.module.Handle(context.Background(), f.leadCreated()); err != nil {
		t.Fatalf("expected failures to be swallowed, got %v", err)
	}
	if len(f.realtime.pushes) != 1 {
		t.Fatal("expected realtime delivery despite other failures")
	}
}

func TestHandleSkipsUnknownRecipient(t *testing.T) {
	f := newFixture()
	e := f.leadCreated()
	stranger := uuid.New()
	e.Lead.AssignedToID = &stranger

	_ = f.module.Handle(context.Background(), e)
	if len(f.sender.messages) != 0 {
		t.Fatalf("expected no email for an inactive assignee, got %d", len(f.sender.messages))
	}
}

func TestPasswordResetEmailCarriesLink(t *testing.T) {
	f := newFixture()
	f.module.SetNotificationOutbox(newMemoryOutbox())

	_ = f.module.Handle(context.Background(), events.PasswordResetRequested{
		BaseEvent:  events.NewBaseEvent(),
		UserID:     uuid.New(),
		Name:       "Pat",
		Email:      "pat@example.com",
		ResetToken: "deadbeef",
	})

	if len(f.sender.messages) != 1 {
		t.Fatalf("expected reset email to bypass the outbox, got %d sends", len(f.sender.messages))
	}
	if !strings.Contains(f.sender.messages[0].Text, "https://app.example.com/reset-password?token=deadbeef") {
		t.Fatalf("reset link missing from %q", f.sender.messages[0].Text)
	}
}

func TestOutboxModeQueuesThenDeliversOnce(t *testing.T) {
	f := newFixture()
	store := newMemoryOutbox()
	f.module.SetNotificationOutbox(store)
	ctx := context.Background()

	_ = f.module.Handle(ctx, f.leadCreated())

	if len(f.sender.messages) != 0 || len(f.webhooks.notified) != 0 {
		t.Fatal("expected email and webhooks to be queued, not sent")
	}
	if len(store.records) != 3 {
		t.Fatalf("expected email, slack and hubspot records, got %d", len(store.records))
	}

	rec := store.only(t, outbox.KindEmail)
	due := events.NotificationOutboxDue{BaseEvent: events.NewBaseEvent(), OutboxID: rec.ID}
	if err := f.module.Handle(ctx, due); err != nil {
		t.Fatalf("outbox due: %v", err)
	}
	if err := f.module.Handle(ctx, due); err != nil {
		t.Fatalf("duplicate outbox due: %v", err)
	}
	if len(f.sender.messages) != 1 || f.sender.messages[0].To != "sam@example.com" {
		t.Fatalf("expected exactly one delivered email, got %+v", f.sender.messages)
	}
	if store.records[rec.ID].Status != outbox.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", store.records[rec.ID].Status)
	}

	slack := store.only(t, outbox.KindSlack)
	_ = f.module.Handle(ctx, events.NotificationOutboxDue{OutboxID: slack.ID})
	if len(f.webhooks.delivered) != 1 || f.webhooks.delivered[0].Slack == nil {
		t.Fatalf("expected slack payload delivery, got %+v", f.webhooks.delivered)
	}
}

func TestOutboxFailureIsNotRetried(t *testing.T) {
	f := newFixture()
	store := newMemoryOutbox()
	f.module.SetNotificationOutbox(store)
	ctx := context.Background()

	id, _ := store.Insert(ctx, outbox.InsertParams{Kind: outbox.KindEmail, Template: TemplateLogin, Payload: email.Message{To: "x@example.com", Subject: "s", Text: "t"}})
	f.sender.result = email.Result{NotConfigured: true}

	if err := f.module.Handle(ctx, events.NotificationOutboxDue{OutboxID: id}); err != nil {
		t.Fatalf("expected failure to be recorded, not returned: %v", err)
	}
	if store.records[id].Status != outbox.StatusFailed || store.errors[id] == "" {
		t.Fatalf("expected failed record with error, got %+v", store.records[id])
	}
}
