package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Name           string       `json:"name" validate:"required,min=1,max=200"`
	Email          string       `json:"email" validate:"required,email,max=254"`
	Phone          *string      `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company        *string      `json:"company,omitempty" validate:"omitempty,max=200"`
	Status         *string      `json:"status,omitempty" validate:"omitempty,leadstatus"`
	Source         *string      `json:"source,omitempty" validate:"omitempty,max=100"`
	EstimatedValue *float64     `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	Notes          *string      `json:"notes,omitempty" validate:"omitempty,max=5000"`
	AssignedToID   OptionalUUID `json:"assignedToId,omitempty" validate:"-"`
}

type UpdateLeadRequest struct {
	Name           *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email          *string      `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Phone          *string      `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company        *string      `json:"company,omitempty" validate:"omitempty,max=200"`
	Status         *string      `json:"status,omitempty" validate:"omitempty,leadstatus"`
	Source         *string      `json:"source,omitempty" validate:"omitempty,max=100"`
	EstimatedValue *float64     `json:"estimatedValue,omitempty" validate:"omitempty,gte=0"`
	Notes          *string      `json:"notes,omitempty" validate:"omitempty,max=5000"`
	AssignedToID   OptionalUUID `json:"assignedToId,omitempty" validate:"-"`
}

type ListLeadsRequest struct {
	Status       string `form:"status" validate:"omitempty,leadstatus"`
	AssignedToID string `form:"assignedToId" validate:"omitempty,uuid"`
	Search       string `form:"search" validate:"omitempty,max=100"`
	Page         int    `form:"page" validate:"omitempty,min=1"`
	Limit        int    `form:"limit" validate:"omitempty,min=1,max=100"`
}

// Response DTOs
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type LeadResponse struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Email          string             `json:"email"`
	Phone          *string            `json:"phone"`
	Company        *string            `json:"company"`
	Status         string             `json:"status"`
	Source         *string            `json:"source"`
	EstimatedValue *float64           `json:"estimatedValue"`
	Notes          *string            `json:"notes"`
	AssignedToID   *uuid.UUID         `json:"assignedToId"`
	CreatedByID    uuid.UUID          `json:"createdById"`
	AssignedTo     *UserSummary       `json:"assignedTo"`
	CreatedBy      *UserSummary       `json:"createdBy"`
	Activities     []ActivityResponse `json:"activities,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type ActivityResponse struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description *string        `json:"description"`
	LeadID      uuid.UUID      `json:"leadId"`
	UserID      uuid.UUID      `json:"userId"`
	Metadata    map[string]any `json:"metadata"`
	User        *UserSummary   `json:"user"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

type LeadListResponse struct {
	Leads      []LeadResponse `json:"leads"`
	Pagination Pagination     `json:"pagination"`
}

type LeadEnvelope struct {
	Message string       `json:"message,omitempty"`
	Lead    LeadResponse `json:"lead"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
