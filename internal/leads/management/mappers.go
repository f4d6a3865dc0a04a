package management

import (
	"crm_backend/internal/leads/repository"
	"crm_backend/internal/leads/transport"
)

// ToLeadResponse maps a stored lead to its API shape.
func ToLeadResponse(view repository.LeadView) transport.LeadResponse {
	return transport.LeadResponse{
		ID:             view.ID,
		Name:           view.Name,
		Email:          view.Email,
		Phone:          view.Phone,
		Company:        view.Company,
		Status:         string(view.Status),
		Source:         view.Source,
		EstimatedValue: view.EstimatedValue,
		Notes:          view.Notes,
		AssignedToID:   view.AssignedToID,
		CreatedByID:    view.CreatedByID,
		AssignedTo:     toUserSummary(view.AssignedTo),
		CreatedBy:      toUserSummary(view.CreatedBy),
		CreatedAt:      view.CreatedAt,
		UpdatedAt:      view.UpdatedAt,
	}
}

// ToActivityResponse maps a stored activity to its API shape.
func ToActivityResponse(view repository.ActivityView) transport.ActivityResponse {
	return transport.ActivityResponse{
		ID:          view.ID,
		Type:        string(view.Type),
		Title:       view.Title,
		Description: view.Description,
		LeadID:      view.LeadID,
		UserID:      view.UserID,
		Metadata:    view.Metadata,
		User:        toUserSummary(view.User),
		CreatedAt:   view.CreatedAt,
		UpdatedAt:   view.UpdatedAt,
	}
}

// ToActivityResponses maps a list of activities, never returning nil.
func ToActivityResponses(views []repository.ActivityView) []transport.ActivityResponse {
	out := make([]transport.ActivityResponse, len(views))
	for i, view := range views {
		out[i] = ToActivityResponse(view)
	}
	return out
}

func toUserSummary(u *repository.UserSummary) *transport.UserSummary {
	if u == nil {
		return nil
	}
	return &transport.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
