// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"time"

	"crm_backend/internal/events"

	"github.com/google/uuid"
)

// Status is a stage in the sales pipeline.
type Status string

const (
	StatusNew         Status = "New"
	StatusContacted   Status = "Contacted"
	StatusQualified   Status = "Qualified"
	StatusProposal    Status = "Proposal"
	StatusNegotiation Status = "Negotiation"
	StatusWon         Status = "Won"
	StatusLost        Status = "Lost"
)

// Statuses lists the pipeline in order.
var Statuses = []Status{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusProposal,
	StatusNegotiation,
	StatusWon,
	StatusLost,
}

// ParseStatus returns the Status named by s.
func ParseStatus(s string) (Status, bool) {
	for _, status := range Statuses {
		if string(status) == s {
			return status, true
		}
	}
	return "", false
}

// Lead is a sales prospect.
type Lead struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Phone          *string
	Company        *string
	Status         Status
	Source         *string
	EstimatedValue *float64
	Notes          *string
	AssignedToID   *uuid.UUID
	CreatedByID    uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot copies the fields notification consumers need.
func (l Lead) Snapshot(assigneeName string) events.LeadSnapshot {
	return events.LeadSnapshot{
		ID:             l.ID,
		Name:           l.Name,
		Email:          l.Email,
		Phone:          l.Phone,
		Company:        l.Company,
		Status:         string(l.Status),
		Source:         l.Source,
		EstimatedValue: l.EstimatedValue,
		AssignedToID:   l.AssignedToID,
		AssignedToName: assigneeName,
	}
}

// UserRef identifies a user by id and display name.
type UserRef struct {
	ID   uuid.UUID
	Name string
}
