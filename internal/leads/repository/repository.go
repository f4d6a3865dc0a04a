package repository

import (
	"context"
	"errors"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (LeadView, error)
	List(ctx context.Context, params ListParams) ([]LeadView, int, error)
}

// LeadWriter persists a lead together with the activities its change produced.
type LeadWriter interface {
	Create(ctx context.Context, lead domain.Lead, activities []domain.Activity) error
	Update(ctx context.Context, lead domain.Lead, activities []domain.Activity) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LeadsRepository is the full persistence surface of the leads module.
type LeadsRepository interface {
	LeadReader
	LeadWriter
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ LeadsRepository = (*Repository)(nil)
