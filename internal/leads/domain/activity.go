package domain

import (
	"strings"
	"time"

	"crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// ActivityType classifies an activity.
type ActivityType string

const (
	ActivityNote         ActivityType = "Note"
	ActivityCall         ActivityType = "Call"
	ActivityMeeting      ActivityType = "Meeting"
	ActivityEmail        ActivityType = "Email"
	ActivityStatusChange ActivityType = "Status Change"
)

// ActivityTypes lists every valid activity type.
var ActivityTypes = []ActivityType{
	ActivityNote,
	ActivityCall,
	ActivityMeeting,
	ActivityEmail,
	ActivityStatusChange,
}

// ParseActivityType returns the ActivityType named by s.
func ParseActivityType(s string) (ActivityType, bool) {
	for _, t := range ActivityTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsNotable reports whether activities of this type are pushed to email and Slack.
func (t ActivityType) IsNotable() bool {
	return t == ActivityCall || t == ActivityMeeting || t == ActivityStatusChange
}

// Activity is a timestamped interaction or change recorded on a lead.
type Activity struct {
	ID          uuid.UUID
	Type        ActivityType
	Title       string
	Description *string
	LeadID      uuid.UUID
	UserID      uuid.UUID
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewActivity validates and builds a user-logged activity.
func NewActivity(leadID, author uuid.UUID, activityType, title string, description *string, metadata map[string]any, now time.Time) (Activity, error) {
	t, ok := ParseActivityType(activityType)
	if !ok {
		return Activity{}, apperr.Validation("Invalid activity type")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Activity{}, apperr.Validation("Title is required")
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Activity{
		ID:          uuid.New(),
		Type:        t,
		Title:       title,
		Description: description,
		LeadID:      leadID,
		UserID:      author,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ActivityPatch is a partial update to an activity. Type and lead are fixed.
type ActivityPatch struct {
	Title       *string
	Description *string
	Metadata    map[string]any
}

// ApplyActivityPatch validates and applies p to a.
func ApplyActivityPatch(a Activity, p ActivityPatch, now time.Time) (Activity, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Activity{}, apperr.Validation("Title cannot be empty")
		}
		a.Title = title
	}
	if p.Description != nil {
		a.Description = p.Description
	}
	if p.Metadata != nil {
		a.Metadata = p.Metadata
	}
	a.UpdatedAt = now
	return a, nil
}
