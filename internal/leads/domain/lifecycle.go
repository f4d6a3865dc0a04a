package domain

import (
	"fmt"
	"strings"
	"time"

	"crm_backend/internal/events"
	"crm_backend/platform/apperr"
	"crm_backend/platform/validator"

	"github.com/google/uuid"
)

const (
	titleLeadCreated    = "Lead Created"
	titleStatusUpdated  = "Status Updated"
	titleLeadReassigned = "Lead Reassigned"
)

var fieldValidator = validator.New()

// CreateInput holds the fields accepted when creating a lead.
type CreateInput struct {
	Name           string
	Email          string
	Phone          *string
	Company        *string
	Status         *string
	Source         *string
	EstimatedValue *float64
	Notes          *string
	AssignedToID   *uuid.UUID
}

// Patch is a partial lead update. Nil fields are left untouched.
type Patch struct {
	Name           *string
	Email          *string
	Phone          *string
	Company        *string
	Status         *string
	Source         *string
	EstimatedValue *float64
	Notes          *string
	AssignedToID   *uuid.UUID
}

// Change is the outcome of a lifecycle step: the lead to persist, the
// activities to insert with it, and the events to publish once both are stored.
type Change struct {
	Lead       Lead
	Activities []Activity
	Events     []events.Event
}

// Modified reports whether the change carries anything to persist beyond the lead row.
func (c Change) Modified() bool {
	return len(c.Activities) > 0 || len(c.Events) > 0
}

// Create validates in and builds a new lead owned by actor. The lead is
// assigned to in.AssignedToID when set, in which case assignee must be the
// resolved user; otherwise it is assigned to actor.
func Create(id uuid.UUID, in CreateInput, actor UserRef, assignee *UserRef, now time.Time) (Change, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Change{}, apperr.Validation("Name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Change{}, err
	}
	status := StatusNew
	if in.Status != nil {
		parsed, ok := ParseStatus(*in.Status)
		if !ok {
			return Change{}, invalidStatus()
		}
		status = parsed
	}
	if err := validateValue(in.EstimatedValue); err != nil {
		return Change{}, err
	}

	owner := actor
	if in.AssignedToID != nil {
		if assignee == nil || assignee.ID != *in.AssignedToID {
			return Change{}, apperr.Validation("Assigned user not found")
		}
		owner = *assignee
	}
	ownerID := owner.ID

	lead := Lead{
		ID:             id,
		Name:           name,
		Email:          email,
		Phone:          in.Phone,
		Company:        in.Company,
		Status:         status,
		Source:         in.Source,
		EstimatedValue: in.EstimatedValue,
		Notes:          in.Notes,
		AssignedToID:   &ownerID,
		CreatedByID:    actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	description := fmt.Sprintf("Lead \"%s\" was created", lead.Name)
	created := Activity{
		ID:          uuid.New(),
		Type:        ActivityNote,
		Title:       titleLeadCreated,
		Description: &description,
		LeadID:      lead.ID,
		UserID:      actor.ID,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return Change{
		Lead:       lead,
		Activities: []Activity{created},
		Events: []events.Event{
			events.LeadCreated{
				BaseEvent: events.BaseEvent{Timestamp: now},
				Lead:      lead.Snapshot(owner.Name),
				ActorID:   actor.ID,
				ActorName: actor.Name,
			},
		},
	}, nil
}

// Apply validates p against existing and returns the updated lead together
// with the activities and events implied by a status or assignee change.
// When p.AssignedToID names a different user, assignee must be that user.
// Nothing is applied if any field is invalid.
func Apply(existing Lead, p Patch, actor UserRef, assignee *UserRef, now time.Time) (Change, error) {
	oldStatus := existing.Status
	oldAssignee := existing.AssignedToID

	var (
		name   string
		email  string
		status Status
		err    error
	)
	if p.Name != nil {
		name = strings.TrimSpace(*p.Name)
		if name == "" {
			return Change{}, apperr.Validation("Name cannot be empty")
		}
	}
	if p.Email != nil {
		if email, err = normalizeEmail(*p.Email); err != nil {
			return Change{}, err
		}
	}
	if p.Status != nil {
		parsed, ok := ParseStatus(*p.Status)
		if !ok {
			return Change{}, invalidStatus()
		}
		status = parsed
	}
	if err := validateValue(p.EstimatedValue); err != nil {
		return Change{}, err
	}
	reassigned := p.AssignedToID != nil && (oldAssignee == nil || *oldAssignee != *p.AssignedToID)
	if reassigned && (assignee == nil || assignee.ID != *p.AssignedToID) {
		return Change{}, apperr.Validation("Assigned user not found")
	}

	lead := existing
	if p.Name != nil {
		lead.Name = name
	}
	if p.Email != nil {
		lead.Email = email
	}
	if p.Phone != nil {
		lead.Phone = p.Phone
	}
	if p.Company != nil {
		lead.Company = p.Company
	}
	if p.Source != nil {
		lead.Source = p.Source
	}
	if p.EstimatedValue != nil {
		lead.EstimatedValue = p.EstimatedValue
	}
	if p.Notes != nil {
		lead.Notes = p.Notes
	}
	if p.Status != nil {
		lead.Status = status
	}
	if p.AssignedToID != nil {
		id := *p.AssignedToID
		lead.AssignedToID = &id
	}
	lead.UpdatedAt = now

	change := Change{Lead: lead}
	base := events.BaseEvent{Timestamp: now}

	if p.Status != nil && status != oldStatus {
		description := fmt.Sprintf("Status changed from \"%s\" to \"%s\"", oldStatus, status)
		change.Activities = append(change.Activities, Activity{
			ID:          uuid.New(),
			Type:        ActivityStatusChange,
			Title:       titleStatusUpdated,
			Description: &description,
			LeadID:      lead.ID,
			UserID:      actor.ID,
			Metadata: map[string]any{
				"oldStatus": string(oldStatus),
				"newStatus": string(status),
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
		change.Events = append(change.Events, events.LeadStatusChanged{
			BaseEvent: base,
			Lead:      lead.Snapshot(""),
			OldStatus: string(oldStatus),
			NewStatus: string(status),
			ActorID:   actor.ID,
			ActorName: actor.Name,
		})
	}

	if reassigned {
		description := fmt.Sprintf("Lead reassigned to %s", assignee.Name)
		change.Activities = append(change.Activities, Activity{
			ID:          uuid.New(),
			Type:        ActivityNote,
			Title:       titleLeadReassigned,
			Description: &description,
			LeadID:      lead.ID,
			UserID:      actor.ID,
			Metadata:    map[string]any{},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		change.Events = append(change.Events, events.LeadReassigned{
			BaseEvent:          base,
			Lead:               lead.Snapshot(assignee.Name),
			PreviousAssigneeID: oldAssignee,
			NewAssigneeID:      assignee.ID,
			NewAssigneeName:    assignee.Name,
			ActorID:            actor.ID,
			ActorName:          actor.Name,
		})
	}

	return change, nil
}

// NeedsAssignee reports whether p moves existing to a different assignee,
// in which case the caller must resolve that user before calling Apply.
func NeedsAssignee(existing Lead, p Patch) bool {
	if p.AssignedToID == nil {
		return false
	}
	return existing.AssignedToID == nil || *existing.AssignedToID != *p.AssignedToID
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if err := fieldValidator.Var(email, "required,email"); err != nil {
		return "", apperr.Validation("Valid email is required")
	}
	return email, nil
}

func validateValue(v *float64) error {
	if v != nil && *v < 0 {
		return apperr.Validation("Estimated value cannot be negative")
	}
	return nil
}

func invalidStatus() error {
	return apperr.Validation("Invalid status").WithDetails(map[string]any{"allowed": Statuses})
}
