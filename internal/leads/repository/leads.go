package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserSummary is the public slice of a user joined onto leads and activities.
type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// LeadView is a lead with its assignee and creator resolved.
type LeadView struct {
	domain.Lead
	AssignedTo *UserSummary
	CreatedBy  *UserSummary
}

// ListParams filters and pages a lead listing.
type ListParams struct {
	Status       *string
	AssignedToID *uuid.UUID
	Search       string
	Limit        int
	Offset       int
}

const leadSelect = `
	SELECT l.id, l.name, l.email, l.phone, l.company, l.status, l.source, l.estimated_value::float8, l.notes,
		l.assigned_to_id, l.created_by_id, l.created_at, l.updated_at,
		a.id, a.name, a.email,
		c.id, c.name, c.email
	FROM leads l
	LEFT JOIN users a ON a.id = l.assigned_to_id
	LEFT JOIN users c ON c.id = l.created_by_id
`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (LeadView, error) {
	row := r.pool.QueryRow(ctx, leadSelect+` WHERE l.id = $1`, id)
	view, err := scanLeadView(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadView{}, ErrNotFound
	}
	return view, err
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]LeadView, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(params)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads l WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY l.created_at DESC LIMIT $%d OFFSET $%d`,
		leadSelect, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]LeadView, 0)
	for rows.Next() {
		view, err := scanLeadView(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, view)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return leads, total, nil
}

func buildLeadListWhere(params ListParams) (string, []interface{}, int) {
	whereClauses := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	if params.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.AssignedToID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("l.assigned_to_id = $%d", argIdx))
		args = append(args, *params.AssignedToID)
		argIdx++
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(l.name ILIKE $%d OR l.email ILIKE $%d OR l.company ILIKE $%d)",
			argIdx, argIdx, argIdx,
		))
		args = append(args, "%"+search+"%")
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

// Create stores a new lead and its initial activities atomically.
func (r *Repository) Create(ctx context.Context, lead domain.Lead, activities []domain.Activity) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		INSERT INTO leads (
			id, name, email, phone, company, status, source, estimated_value, notes,
			assigned_to_id, created_by_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company, string(lead.Status), lead.Source, lead.EstimatedValue, lead.Notes,
		lead.AssignedToID, lead.CreatedByID, lead.CreatedAt, lead.UpdatedAt,
	); err != nil {
		return err
	}

	if err = insertActivities(ctx, tx, activities); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update writes the mutable lead fields and any derived activities atomically.
// created_by_id is never written.
func (r *Repository) Update(ctx context.Context, lead domain.Lead, activities []domain.Activity) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE leads SET
			name = $2, email = $3, phone = $4, company = $5, status = $6, source = $7,
			estimated_value = $8, notes = $9, assigned_to_id = $10, updated_at = $11
		WHERE id = $1
	`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company, string(lead.Status), lead.Source,
		lead.EstimatedValue, lead.Notes, lead.AssignedToID, lead.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		return err
	}

	if err = insertActivities(ctx, tx, activities); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes a lead; its activities go with it via ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertActivities(ctx context.Context, tx pgx.Tx, activities []domain.Activity) error {
	for _, a := range activities {
		metadata, err := json.Marshal(a.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO activities (id, type, title, description, lead_id, user_id, metadata, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
		`, a.ID, string(a.Type), a.Title, a.Description, a.LeadID, a.UserID, string(metadata), a.CreatedAt, a.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

func scanLeadView(row pgx.Row) (LeadView, error) {
	var (
		view                        LeadView
		status                      string
		assigneeID, creatorID       *uuid.UUID
		assigneeName, assigneeEmail *string
		creatorName, creatorEmail   *string
	)
	if err := row.Scan(
		&view.ID, &view.Name, &view.Email, &view.Phone, &view.Company, &status, &view.Source, &view.EstimatedValue, &view.Notes,
		&view.AssignedToID, &view.CreatedByID, &view.CreatedAt, &view.UpdatedAt,
		&assigneeID, &assigneeName, &assigneeEmail,
		&creatorID, &creatorName, &creatorEmail,
	); err != nil {
		return LeadView{}, err
	}
	view.Status = domain.Status(status)
	view.AssignedTo = summary(assigneeID, assigneeName, assigneeEmail)
	view.CreatedBy = summary(creatorID, creatorName, creatorEmail)
	return view, nil
}

func summary(id *uuid.UUID, name, email *string) *UserSummary {
	if id == nil {
		return nil
	}
	s := &UserSummary{ID: *id}
	if name != nil {
		s.Name = *name
	}
	if email != nil {
		s.Email = *email
	}
	return s
}
