package notification

import (
	"crm_backend/internal/events"
	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Channel is a delivery route for a notification.
type Channel string

const (
	ChannelRealtime Channel = "realtime"
	ChannelEmail    Channel = "email"
	ChannelSlack    Channel = "slack"
	ChannelHubSpot  Channel = "hubspot"
)

// Realtime event names as seen by browser clients.
const (
	RealtimeLeadCreated       = "lead_created"
	RealtimeLeadAssigned      = "lead_assigned"
	RealtimeLeadStatusChanged = "lead_status_changed"
	RealtimeActivityCreated   = "activity_created"
	RealtimeUserRegistered    = "user_registered"
)

// Email templates.
const (
	TemplateWelcome              = "welcome"
	TemplateLogin                = "login"
	TemplatePasswordReset        = "password_reset"
	TemplatePasswordResetSuccess = "password_reset_success"
	TemplateLeadCreated          = "lead_created"
	TemplateLeadAssigned         = "lead_assigned"
	TemplateLeadStatus           = "lead_status"
	TemplateActivity             = "activity"
)

// Delivery is one planned side effect of an event.
//
// Name is the realtime event name or the email template. For realtime
// deliveries To is the target user unless Broadcast is set. For email, To is
// the recipient user; Address is set when the event already carries it.
type Delivery struct {
	Channel   Channel
	Name      string
	To        uuid.UUID
	Broadcast bool
	Address   string
}

// Plan returns the deliveries an event fans out to. It never performs I/O.
func Plan(event events.Event) []Delivery {
	switch e := event.(type) {
	case events.LeadCreated:
		out := toAssignee(e.Lead.AssignedToID, RealtimeLeadCreated, TemplateLeadCreated, true)
		return append(out,
			Delivery{Channel: ChannelSlack, Name: e.EventName()},
			Delivery{Channel: ChannelHubSpot, Name: e.EventName()},
		)
	case events.LeadReassigned:
		out := toAssignee(&e.NewAssigneeID, RealtimeLeadAssigned, TemplateLeadAssigned, true)
		return append(out, Delivery{Channel: ChannelSlack, Name: e.EventName()})
	case events.LeadStatusChanged:
		out := toAssignee(e.Lead.AssignedToID, RealtimeLeadStatusChanged, TemplateLeadStatus, true)
		return append(out, Delivery{Channel: ChannelSlack, Name: e.EventName()})
	case events.ActivityCreated:
		notable := domain.ActivityType(e.Type).IsNotable()
		out := toAssignee(e.Lead.AssignedToID, RealtimeActivityCreated, TemplateActivity, notable)
		if notable {
			out = append(out, Delivery{Channel: ChannelSlack, Name: e.EventName()})
		}
		return out
	case events.UserRegistered:
		return []Delivery{
			{Channel: ChannelRealtime, Name: RealtimeUserRegistered, Broadcast: true},
			{Channel: ChannelEmail, Name: TemplateWelcome, To: e.UserID, Address: e.Email},
		}
	case events.UserLoggedIn:
		return []Delivery{{Channel: ChannelEmail, Name: TemplateLogin, To: e.UserID, Address: e.Email}}
	case events.PasswordResetRequested:
		return []Delivery{{Channel: ChannelEmail, Name: TemplatePasswordReset, To: e.UserID, Address: e.Email}}
	case events.PasswordResetCompleted:
		return []Delivery{{Channel: ChannelEmail, Name: TemplatePasswordResetSuccess, To: e.UserID, Address: e.Email}}
	}
	return nil
}

// toAssignee plans the realtime push and optionally the email for a lead's
// assignee. Unassigned leads notify nobody.
func toAssignee(assignee *uuid.UUID, realtime, template string, withEmail bool) []Delivery {
	if assignee == nil || *assignee == uuid.Nil {
		return nil
	}
	out := []Delivery{{Channel: ChannelRealtime, Name: realtime, To: *assignee}}
	if withEmail {
		out = append(out, Delivery{Channel: ChannelEmail, Name: template, To: *assignee})
	}
	return out
}
