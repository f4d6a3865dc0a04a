package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrActivityNotFound = errors.New("activity not found")

// ActivityView is an activity with its author and the owning lead's assignee.
type ActivityView struct {
	domain.Activity
	User             *UserSummary
	LeadName         string
	LeadAssignedToID *uuid.UUID
}

// RecentActivity is one entry of a user's notification feed.
type RecentActivity struct {
	ID        uuid.UUID
	Type      string
	Title     string
	LeadID    uuid.UUID
	LeadName  string
	UserName  *string
	CreatedAt time.Time
}

// ActivityStore provides activity persistence scoped to leads.
type ActivityStore interface {
	ListActivities(ctx context.Context, leadID uuid.UUID) ([]ActivityView, error)
	GetActivity(ctx context.Context, id uuid.UUID) (ActivityView, error)
	CreateActivity(ctx context.Context, activity domain.Activity) error
	UpdateActivity(ctx context.Context, activity domain.Activity) error
	DeleteActivity(ctx context.Context, id uuid.UUID) error
	ListRecentForAssignee(ctx context.Context, userID uuid.UUID, limit int) ([]RecentActivity, error)
}

var _ ActivityStore = (*Repository)(nil)

const activitySelect = `
	SELECT ac.id, ac.type, ac.title, ac.description, ac.lead_id, ac.user_id, ac.metadata, ac.created_at, ac.updated_at,
		u.id, u.name, u.email,
		l.name, l.assigned_to_id
	FROM activities ac
	JOIN leads l ON l.id = ac.lead_id
	LEFT JOIN users u ON u.id = ac.user_id
`

func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID) ([]ActivityView, error) {
	rows, err := r.pool.Query(ctx, activitySelect+` WHERE ac.lead_id = $1 ORDER BY ac.created_at DESC`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]ActivityView, 0)
	for rows.Next() {
		item, err := scanActivityView(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) GetActivity(ctx context.Context, id uuid.UUID) (ActivityView, error) {
	item, err := scanActivityView(r.pool.QueryRow(ctx, activitySelect+` WHERE ac.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ActivityView{}, ErrActivityNotFound
	}
	return item, err
}

func (r *Repository) CreateActivity(ctx context.Context, activity domain.Activity) error {
	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO activities (id, type, title, description, lead_id, user_id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
	`, activity.ID, string(activity.Type), activity.Title, activity.Description, activity.LeadID, activity.UserID,
		string(metadata), activity.CreatedAt, activity.UpdatedAt)
	return err
}

func (r *Repository) UpdateActivity(ctx context.Context, activity domain.Activity) error {
	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE activities SET title = $2, description = $3, metadata = $4::jsonb, updated_at = $5
		WHERE id = $1
	`, activity.ID, activity.Title, activity.Description, string(metadata), activity.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (r *Repository) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// ListRecentForAssignee returns the newest activities on leads assigned to userID.
func (r *Repository) ListRecentForAssignee(ctx context.Context, userID uuid.UUID, limit int) ([]RecentActivity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ac.id, ac.type, ac.title, l.id, l.name, u.name, ac.created_at
		FROM activities ac
		JOIN leads l ON l.id = ac.lead_id
		LEFT JOIN users u ON u.id = ac.user_id
		WHERE l.assigned_to_id = $1
		ORDER BY ac.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]RecentActivity, 0, limit)
	for rows.Next() {
		var item RecentActivity
		if err := rows.Scan(&item.ID, &item.Type, &item.Title, &item.LeadID, &item.LeadName, &item.UserName, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func scanActivityView(row pgx.Row) (ActivityView, error) {
	var (
		view                ActivityView
		activityType        string
		metadata            []byte
		userID              *uuid.UUID
		userName, userEmail *string
	)
	if err := row.Scan(
		&view.ID, &activityType, &view.Title, &view.Description, &view.LeadID, &view.UserID, &metadata, &view.CreatedAt, &view.UpdatedAt,
		&userID, &userName, &userEmail,
		&view.LeadName, &view.LeadAssignedToID,
	); err != nil {
		return ActivityView{}, err
	}
	view.Type = domain.ActivityType(activityType)
	view.Metadata = map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &view.Metadata); err != nil {
			return ActivityView{}, err
		}
	}
	view.User = summary(userID, userName, userEmail)
	return view, nil
}
