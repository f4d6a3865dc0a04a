package integrations

import (
	"strings"

	"crm_backend/internal/events"
	"crm_backend/internal/leads/domain"
)

const (
	slackColorGood   = "good"
	statusChangeType = string(domain.ActivityStatusChange)
	statusTitle      = "Status Updated"
)

// Payload is a fully rendered webhook delivery. It is stored as JSON in the
// notification outbox, so it must not depend on anything loaded later.
type Payload struct {
	Kind    Kind              `json:"kind"`
	Event   string            `json:"event"`
	Slack   *SlackMessage     `json:"slack,omitempty"`
	Contact map[string]string `json:"contact,omitempty"`
}

// BuildPayload renders event for kind. It reports false when kind has nothing
// to send for this event.
func BuildPayload(kind Kind, event events.Event) (Payload, bool) {
	switch kind {
	case KindSlack:
		msg, ok := slackMessageFor(event)
		if !ok {
			return Payload{}, false
		}
		return Payload{Kind: kind, Event: event.EventName(), Slack: &msg}, true
	case KindHubSpot:
		contact, ok := hubSpotContactFor(event)
		if !ok {
			return Payload{}, false
		}
		return Payload{Kind: kind, Event: event.EventName(), Contact: contact}, true
	}
	return Payload{}, false
}

func slackMessageFor(event events.Event) (SlackMessage, bool) {
	switch e := event.(type) {
	case events.LeadCreated:
		assignee := e.Lead.AssignedToName
		if assignee == "" {
			assignee = "Unassigned"
		}
		return slackAttachment("New Lead Created",
			SlackField{Title: "Lead Name", Value: e.Lead.Name, Short: true},
			SlackField{Title: "Email", Value: e.Lead.Email, Short: true},
			SlackField{Title: "Status", Value: e.Lead.Status, Short: true},
			SlackField{Title: "Assigned To", Value: assignee, Short: true},
		), true
	case events.LeadReassigned:
		return slackAttachment("Lead Assigned",
			SlackField{Title: "Lead Name", Value: e.Lead.Name, Short: true},
			SlackField{Title: "Assigned To", Value: e.NewAssigneeName, Short: true},
			SlackField{Title: "Assigned By", Value: e.ActorName, Short: true},
		), true
	case events.LeadStatusChanged:
		return activityMessage(e.Lead.Name, statusChangeType, statusTitle), true
	case events.ActivityCreated:
		if !domain.ActivityType(e.Type).IsNotable() {
			return SlackMessage{}, false
		}
		return activityMessage(e.Lead.Name, e.Type, e.Title), true
	}
	return SlackMessage{}, false
}

func activityMessage(leadName, activityType, title string) SlackMessage {
	return slackAttachment("New "+activityType+" on Lead",
		SlackField{Title: "Lead", Value: leadName, Short: true},
		SlackField{Title: "Activity Type", Value: activityType, Short: true},
		SlackField{Title: "Title", Value: title},
	)
}

func slackAttachment(text string, fields ...SlackField) SlackMessage {
	return SlackMessage{
		Text:        text,
		Attachments: []SlackAttachment{{Color: slackColorGood, Fields: fields}},
	}
}

func testSlackMessage() SlackMessage {
	return slackAttachment("Test notification from CRM System",
		SlackField{Title: "Status", Value: "Integration test successful"},
	)
}

func hubSpotContactFor(event events.Event) (map[string]string, bool) {
	e, ok := event.(events.LeadCreated)
	if !ok {
		return nil, false
	}

	first, last := splitName(e.Lead.Name)
	return map[string]string{
		"email":          e.Lead.Email,
		"firstname":      first,
		"lastname":       last,
		"phone":          deref(e.Lead.Phone),
		"company":        deref(e.Lead.Company),
		"hs_lead_status": e.Lead.Status,
	}, true
}

// splitName puts the first word in firstname and the rest in lastname.
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
