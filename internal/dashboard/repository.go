package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Totals are the scalar KPIs of the stats endpoint.
type Totals struct {
	TotalLeads       int
	TotalValue       float64
	RecentActivities int
	LeadsLast30Days  int
}

// Bucket is one row of a grouped count.
type Bucket struct {
	Key   string
	Count int
}

// PerformanceRow aggregates the leads assigned to one user.
type PerformanceRow struct {
	UserID     uuid.UUID
	Name       string
	Email      string
	TotalLeads int
	TotalValue float64
	WonLeads   int
}

// DateRange bounds lead creation time, both ends inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Totals counts leads, their value, activities since activitySince and leads
// created since leadSince. A non-nil assignee restricts every count to that
// user's leads.
func (r *Repository) Totals(ctx context.Context, assignee *uuid.UUID, activitySince, leadSince time.Time) (Totals, error) {
	var totals Totals
	err := r.pool.QueryRow(ctx, `
		SELECT
			(
				SELECT COUNT(*)
				FROM leads
				WHERE ($1::uuid IS NULL OR assigned_to_id = $1)
			) AS total_leads,
			(
				SELECT COALESCE(SUM(estimated_value), 0)::float8
				FROM leads
				WHERE ($1::uuid IS NULL OR assigned_to_id = $1)
			) AS total_value,
			(
				SELECT COUNT(*)
				FROM activities ac
				JOIN leads l ON l.id = ac.lead_id
				WHERE ($1::uuid IS NULL OR l.assigned_to_id = $1)
					AND ac.created_at >= $2
			) AS recent_activities,
			(
				SELECT COUNT(*)
				FROM leads
				WHERE ($1::uuid IS NULL OR assigned_to_id = $1)
					AND created_at >= $3
			) AS leads_last_30_days
	`, assignee, activitySince, leadSince).Scan(
		&totals.TotalLeads,
		&totals.TotalValue,
		&totals.RecentActivities,
		&totals.LeadsLast30Days,
	)
	if err != nil {
		return Totals{}, err
	}
	return totals, nil
}

func (r *Repository) LeadsByStatus(ctx context.Context, assignee *uuid.UUID) ([]Bucket, error) {
	return r.buckets(ctx, `
		SELECT status, COUNT(*)
		FROM leads
		WHERE ($1::uuid IS NULL OR assigned_to_id = $1)
		GROUP BY status
		ORDER BY status
	`, assignee)
}

// LeadsBySource skips leads without a source.
func (r *Repository) LeadsBySource(ctx context.Context, assignee *uuid.UUID) ([]Bucket, error) {
	return r.buckets(ctx, `
		SELECT source, COUNT(*)
		FROM leads
		WHERE ($1::uuid IS NULL OR assigned_to_id = $1)
			AND source IS NOT NULL
		GROUP BY source
		ORDER BY source
	`, assignee)
}

func (r *Repository) ActivitiesByType(ctx context.Context, assignee *uuid.UUID) ([]Bucket, error) {
	return r.buckets(ctx, `
		SELECT ac.type, COUNT(*)
		FROM activities ac
		JOIN leads l ON l.id = ac.lead_id
		WHERE ($1::uuid IS NULL OR l.assigned_to_id = $1)
		GROUP BY ac.type
		ORDER BY ac.type
	`, assignee)
}

func (r *Repository) buckets(ctx context.Context, query string, assignee *uuid.UUID) ([]Bucket, error) {
	rows, err := r.pool.Query(ctx, query, assignee)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Bucket, 0)
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// Performance groups assigned leads by assignee. Unassigned leads are left out.
func (r *Repository) Performance(ctx context.Context, window *DateRange) ([]PerformanceRow, error) {
	query := `
		SELECT u.id, u.name, u.email,
			COUNT(l.id),
			COALESCE(SUM(l.estimated_value), 0)::float8,
			COUNT(*) FILTER (WHERE l.status = 'Won')
		FROM leads l
		JOIN users u ON u.id = l.assigned_to_id
	`
	var args []interface{}
	if window != nil {
		query += ` WHERE l.created_at BETWEEN $1 AND $2`
		args = append(args, window.Start, window.End)
	}
	query += ` GROUP BY u.id, u.name, u.email ORDER BY u.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query performance: %w", err)
	}
	defer rows.Close()

	result := make([]PerformanceRow, 0)
	for rows.Next() {
		var p PerformanceRow
		if err := rows.Scan(&p.UserID, &p.Name, &p.Email, &p.TotalLeads, &p.TotalValue, &p.WonLeads); err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
