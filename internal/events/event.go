// Package events defines the CRM domain events. The bus itself lives in
// platform/events and is aliased here so modules import a single package.
package events

import (
	"crm_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// LeadSnapshot is the lead state carried by lead and activity events.
// Consumers must not reload the lead to render a notification.
type LeadSnapshot struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          *string    `json:"phone,omitempty"`
	Company        *string    `json:"company,omitempty"`
	Status         string     `json:"status"`
	Source         *string    `json:"source,omitempty"`
	EstimatedValue *float64   `json:"estimatedValue,omitempty"`
	AssignedToID   *uuid.UUID `json:"assignedToId,omitempty"`
	AssignedToName string     `json:"assignedToName,omitempty"`
}

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserRegistered is published when an account is created, by self sign-up or
// by an administrator.
type UserRegistered struct {
	BaseEvent
	UserID uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

func (e UserRegistered) EventName() string { return "auth.user.registered" }

// UserLoggedIn is published after a successful login.
type UserLoggedIn struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

func (e UserLoggedIn) EventName() string { return "auth.user.logged_in" }

// PasswordResetRequested is published when a user requests a password reset.
type PasswordResetRequested struct {
	BaseEvent
	UserID     uuid.UUID `json:"userId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	ResetToken string    `json:"resetToken"`
}

func (e PasswordResetRequested) EventName() string { return "auth.password.reset_requested" }

// PasswordResetCompleted is published after a reset token has been consumed.
type PasswordResetCompleted struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
}

func (e PasswordResetCompleted) EventName() string { return "auth.password.reset_completed" }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created.
type LeadCreated struct {
	BaseEvent
	Lead      LeadSnapshot `json:"lead"`
	ActorID   uuid.UUID    `json:"actorId"`
	ActorName string       `json:"actorName"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published when an update moves a lead to a new status.
type LeadStatusChanged struct {
	BaseEvent
	Lead      LeadSnapshot `json:"lead"`
	OldStatus string       `json:"oldStatus"`
	NewStatus string       `json:"newStatus"`
	ActorID   uuid.UUID    `json:"actorId"`
	ActorName string       `json:"actorName"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadReassigned is published when an update hands a lead to another user.
type LeadReassigned struct {
	BaseEvent
	Lead               LeadSnapshot `json:"lead"`
	PreviousAssigneeID *uuid.UUID   `json:"previousAssigneeId,omitempty"`
	NewAssigneeID      uuid.UUID    `json:"newAssigneeId"`
	NewAssigneeName    string       `json:"newAssigneeName"`
	ActorID            uuid.UUID    `json:"actorId"`
	ActorName          string       `json:"actorName"`
}

func (e LeadReassigned) EventName() string { return "leads.lead.reassigned" }

// =============================================================================
// Activities Domain Events
// =============================================================================

// ActivityCreated is published when a user logs an activity on a lead.
type ActivityCreated struct {
	BaseEvent
	ActivityID  uuid.UUID    `json:"activityId"`
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Lead        LeadSnapshot `json:"lead"`
	AuthorID    uuid.UUID    `json:"authorId"`
	AuthorName  string       `json:"authorName"`
}

func (e ActivityCreated) EventName() string { return "activities.activity.created" }

// =============================================================================
// Notification Outbox Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record should be delivered.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
