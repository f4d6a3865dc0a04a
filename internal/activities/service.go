// Package activities manages the interaction log attached to leads.
package activities

import (
	"context"
	"errors"
	"time"

	"crm_backend/internal/access"
	"crm_backend/internal/events"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/management"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/leads/repository"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/apperr"
	"crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the storage the activities service needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.LeadView, error)
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]repository.ActivityView, error)
	GetActivity(ctx context.Context, id uuid.UUID) (repository.ActivityView, error)
	CreateActivity(ctx context.Context, activity domain.Activity) error
	UpdateActivity(ctx context.Context, activity domain.Activity) error
	DeleteActivity(ctx context.Context, id uuid.UUID) error
}

// CreateRequest is the body of POST /activities.
type CreateRequest struct {
	Type        string         `json:"type" validate:"required,activitytype"`
	Title       string         `json:"title" validate:"required,min=1,max=200"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=5000"`
	LeadID      uuid.UUID      `json:"leadId" validate:"required"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UpdateRequest is the body of PUT /activities/:id.
type UpdateRequest struct {
	Title       *string        `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=5000"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Service handles activity CRUD with lead-scoped access checks.
type Service struct {
	repo     Repository
	users    ports.UserProvider
	eventBus events.Bus
	now      func() time.Time
}

// NewService creates an activities service.
func NewService(repo Repository, users ports.UserProvider, eventBus events.Bus) *Service {
	return &Service{repo: repo, users: users, eventBus: eventBus, now: time.Now}
}

// ListForLead returns a lead's activities, newest first.
func (s *Service) ListForLead(ctx context.Context, actor access.Actor, leadID uuid.UUID) ([]transport.ActivityResponse, error) {
	lead, err := s.findLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if err := access.ActivityAccess(actor, leadRef(lead)).Err(); err != nil {
		return nil, err
	}

	views, err := s.repo.ListActivities(ctx, leadID)
	if err != nil {
		return nil, err
	}
	return management.ToActivityResponses(views), nil
}

// Create logs an activity on a lead and announces it.
func (s *Service) Create(ctx context.Context, actor access.Actor, req CreateRequest) (transport.ActivityResponse, error) {
	lead, err := s.findLead(ctx, req.LeadID)
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	if err := access.ActivityAccess(actor, leadRef(lead)).Err(); err != nil {
		return transport.ActivityResponse{}, err
	}

	author, err := s.users.GetActiveUser(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return transport.ActivityResponse{}, apperr.Unauthorized("User not found or inactive")
		}
		return transport.ActivityResponse{}, err
	}

	activity, err := domain.NewActivity(lead.ID, actor.ID, req.Type, sanitize.Text(req.Title), sanitize.TextPtr(req.Description), req.Metadata, s.now().UTC())
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	if err := s.repo.CreateActivity(ctx, activity); err != nil {
		return transport.ActivityResponse{}, err
	}

	var assigneeName string
	if lead.AssignedTo != nil {
		assigneeName = lead.AssignedTo.Name
	}
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ActivityCreated{
			BaseEvent:   events.NewBaseEvent(),
			ActivityID:  activity.ID,
			Type:        string(activity.Type),
			Title:       activity.Title,
			Description: activity.Description,
			Lead:        lead.Snapshot(assigneeName),
			AuthorID:    author.ID,
			AuthorName:  author.Name,
		})
	}

	return s.load(ctx, activity.ID)
}

// Update edits an activity's title, description or metadata.
func (s *Service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, req UpdateRequest) (transport.ActivityResponse, error) {
	view, err := s.findActivity(ctx, id)
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	// Sales executives must still have access to the parent lead.
	if err := access.ActivityAccess(actor, &access.LeadRef{ID: view.LeadID, AssignedToID: view.LeadAssignedToID}).Err(); err != nil {
		return transport.ActivityResponse{}, err
	}
	if err := access.ActivityModify(actor, activityRef(view)).Err(); err != nil {
		return transport.ActivityResponse{}, err
	}

	updated, err := domain.ApplyActivityPatch(view.Activity, domain.ActivityPatch{
		Title:       sanitize.TextPtr(req.Title),
		Description: sanitize.TextPtr(req.Description),
		Metadata:    req.Metadata,
	}, s.now().UTC())
	if err != nil {
		return transport.ActivityResponse{}, err
	}

	if err := s.repo.UpdateActivity(ctx, updated); err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return transport.ActivityResponse{}, apperr.NotFound("Activity not found")
		}
		return transport.ActivityResponse{}, err
	}
	return s.load(ctx, id)
}

// Delete removes an activity. Only its author or an Admin or Manager may do so.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	view, err := s.findActivity(ctx, id)
	if err != nil {
		return err
	}
	if err := access.ActivityModify(actor, activityRef(view)).Err(); err != nil {
		return err
	}
	if err := s.repo.DeleteActivity(ctx, id); err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return apperr.NotFound("Activity not found")
		}
		return err
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (transport.ActivityResponse, error) {
	view, err := s.findActivity(ctx, id)
	if err != nil {
		return transport.ActivityResponse{}, err
	}
	return management.ToActivityResponse(view), nil
}

func (s *Service) findLead(ctx context.Context, id uuid.UUID) (repository.LeadView, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.LeadView{}, apperr.NotFound("Lead not found")
		}
		return repository.LeadView{}, err
	}
	return lead, nil
}

func (s *Service) findActivity(ctx context.Context, id uuid.UUID) (repository.ActivityView, error) {
	view, err := s.repo.GetActivity(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrActivityNotFound) {
			return repository.ActivityView{}, apperr.NotFound("Activity not found")
		}
		return repository.ActivityView{}, err
	}
	return view, nil
}

func leadRef(view repository.LeadView) *access.LeadRef {
	return &access.LeadRef{ID: view.ID, AssignedToID: view.AssignedToID}
}

func activityRef(view repository.ActivityView) *access.ActivityRef {
	return &access.ActivityRef{
		ID:       view.ID,
		AuthorID: view.UserID,
		Lead:     access.LeadRef{ID: view.LeadID, AssignedToID: view.LeadAssignedToID},
	}
}
