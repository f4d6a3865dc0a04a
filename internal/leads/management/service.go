// Package management handles lead CRUD operations.
// This is a vertically sliced feature package containing service logic
// for creating, reading, updating, and deleting leads.
package management

import (
	"context"
	"errors"
	"math"
	"time"

	"crm_backend/internal/access"
	"crm_backend/internal/events"
	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/ports"
	"crm_backend/internal/leads/repository"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/apperr"
	"crm_backend/platform/phone"
	"crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]repository.ActivityView, error)
}

// Service handles lead management operations (CRUD).
type Service struct {
	repo        Repository
	users       ports.UserProvider
	eventBus    events.Bus
	phoneRegion string
	now         func() time.Time
}

// New creates a new lead management service.
func New(repo Repository, users ports.UserProvider, eventBus events.Bus, phoneRegion string) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		eventBus:    eventBus,
		phoneRegion: phoneRegion,
		now:         time.Now,
	}
}

// Create creates a new lead assigned to the requested user or the actor.
func (s *Service) Create(ctx context.Context, actor access.Actor, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	actorRef, err := s.userRef(ctx, actor.ID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	var assignee *domain.UserRef
	if id := req.AssignedToID.Ptr(); id != nil {
		ref, err := s.assigneeRef(ctx, *id)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		assignee = &ref
	}

	in := domain.CreateInput{
		Name:           sanitize.Text(req.Name),
		Email:          req.Email,
		Phone:          s.normalizePhone(req.Phone),
		Company:        sanitize.TextPtr(req.Company),
		Status:         req.Status,
		Source:         sanitize.TextPtr(req.Source),
		EstimatedValue: req.EstimatedValue,
		Notes:          sanitize.TextPtr(req.Notes),
		AssignedToID:   req.AssignedToID.Ptr(),
	}

	change, err := domain.Create(uuid.New(), in, actorRef, assignee, s.now().UTC())
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if err := s.repo.Create(ctx, change.Lead, change.Activities); err != nil {
		return transport.LeadResponse{}, err
	}
	s.publish(ctx, change.Events)

	return s.load(ctx, change.Lead.ID)
}

// Get returns a lead with its activities after checking read access.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (transport.LeadResponse, error) {
	view, err := s.find(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if err := access.LeadAccess(actor, leadRef(view), access.OpRead).Err(); err != nil {
		return transport.LeadResponse{}, err
	}

	activities, err := s.repo.ListActivities(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	resp := ToLeadResponse(view)
	resp.Activities = ToActivityResponses(activities)
	return resp, nil
}

// List returns a page of leads visible to the actor, newest first.
func (s *Service) List(ctx context.Context, actor access.Actor, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	params := repository.ListParams{
		Search: req.Search,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if req.Status != "" {
		status := req.Status
		params.Status = &status
	}
	if scope := access.LeadListScope(actor); scope != nil {
		params.AssignedToID = scope
	} else if req.AssignedToID != "" {
		assignedTo, err := uuid.Parse(req.AssignedToID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("Invalid assignedToId")
		}
		params.AssignedToID = &assignedTo
	}

	views, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	leads := make([]transport.LeadResponse, len(views))
	for i, view := range views {
		leads[i] = ToLeadResponse(view)
	}

	return transport.LeadListResponse{
		Leads: leads,
		Pagination: transport.Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// Update applies a partial update. Status and assignee changes are recorded as
// activities in the same transaction and announced after commit.
func (s *Service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	view, err := s.find(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if err := access.LeadAccess(actor, leadRef(view), access.OpUpdate).Err(); err != nil {
		return transport.LeadResponse{}, err
	}

	actorRef, err := s.userRef(ctx, actor.ID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	patch := domain.Patch{
		Name:           sanitize.TextPtr(req.Name),
		Email:          req.Email,
		Phone:          s.normalizePhone(req.Phone),
		Company:        sanitize.TextPtr(req.Company),
		Status:         req.Status,
		Source:         sanitize.TextPtr(req.Source),
		EstimatedValue: req.EstimatedValue,
		Notes:          sanitize.TextPtr(req.Notes),
		AssignedToID:   req.AssignedToID.Ptr(),
	}

	var assignee *domain.UserRef
	if domain.NeedsAssignee(view.Lead, patch) {
		ref, err := s.assigneeRef(ctx, *patch.AssignedToID)
		if err != nil {
			return transport.LeadResponse{}, err
		}
		assignee = &ref
	}

	change, err := domain.Apply(view.Lead, patch, actorRef, assignee, s.now().UTC())
	if err != nil {
		return transport.LeadResponse{}, err
	}

	if err := s.repo.Update(ctx, change.Lead, change.Activities); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("Lead not found")
		}
		return transport.LeadResponse{}, err
	}
	s.publish(ctx, change.Events)

	return s.load(ctx, id)
}

// Delete removes a lead and, through the database cascade, its activities.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	view, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := access.LeadDelete(actor, leadRef(view)).Err(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("Lead not found")
		}
		return err
	}
	return nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (repository.LeadView, error) {
	view, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.LeadView{}, apperr.NotFound("Lead not found")
		}
		return repository.LeadView{}, err
	}
	return view, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	view, err := s.find(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(view), nil
}

func (s *Service) publish(ctx context.Context, evts []events.Event) {
	if s.eventBus == nil {
		return
	}
	for _, ev := range evts {
		s.eventBus.Publish(ctx, ev)
	}
}

func (s *Service) userRef(ctx context.Context, id uuid.UUID) (domain.UserRef, error) {
	info, err := s.users.GetActiveUser(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return domain.UserRef{}, apperr.Unauthorized("User not found or inactive")
		}
		return domain.UserRef{}, err
	}
	return domain.UserRef{ID: info.ID, Name: info.Name}, nil
}

func (s *Service) assigneeRef(ctx context.Context, id uuid.UUID) (domain.UserRef, error) {
	info, err := s.users.GetActiveUser(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return domain.UserRef{}, apperr.Validation("Assigned user not found")
		}
		return domain.UserRef{}, err
	}
	return domain.UserRef{ID: info.ID, Name: info.Name}, nil
}

func (s *Service) normalizePhone(value *string) *string {
	if value == nil {
		return nil
	}
	normalized := phone.NormalizeE164(*value, s.phoneRegion)
	return &normalized
}

func leadRef(view repository.LeadView) *access.LeadRef {
	return &access.LeadRef{ID: view.ID, AssignedToID: view.AssignedToID}
}
