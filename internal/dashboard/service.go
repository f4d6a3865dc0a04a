// Package dashboard aggregates lead and activity statistics for the home
// screen and the team performance report.
package dashboard

import (
	"context"
	"math"
	"time"

	"crm_backend/internal/access"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	recentActivityWindow = 7 * 24 * time.Hour
	newLeadWindow        = 30 * 24 * time.Hour
)

// Store is the read model the dashboard queries.
type Store interface {
	Totals(ctx context.Context, assignee *uuid.UUID, activitySince, leadSince time.Time) (Totals, error)
	LeadsByStatus(ctx context.Context, assignee *uuid.UUID) ([]Bucket, error)
	LeadsBySource(ctx context.Context, assignee *uuid.UUID) ([]Bucket, error)
	ActivitiesByType(ctx context.Context, assignee *uuid.UUID) ([]Bucket, error)
	Performance(ctx context.Context, window *DateRange) ([]PerformanceRow, error)
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalLeads       int           `json:"totalLeads"`
	TotalValue       float64       `json:"totalValue"`
	RecentActivities int           `json:"recentActivities"`
	LeadsLast30Days  int           `json:"leadsLast30Days"`
	LeadsByStatus    []StatusCount `json:"leadsByStatus"`
	LeadsBySource    []SourceCount `json:"leadsBySource"`
	ActivitiesByType []TypeCount   `json:"activitiesByType"`
}

type PerformanceUser struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type Performance struct {
	User           PerformanceUser `json:"user"`
	TotalLeads     int             `json:"totalLeads"`
	TotalValue     float64         `json:"totalValue"`
	WonLeads       int             `json:"wonLeads"`
	ConversionRate float64         `json:"conversionRate"`
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Stats returns the dashboard KPIs visible to actor. Sales executives only
// see their own leads.
func (s *Service) Stats(ctx context.Context, actor access.Actor) (Stats, error) {
	scope := access.LeadListScope(actor)
	now := s.now()

	var (
		totals     Totals
		byStatus   []Bucket
		bySource   []Bucket
		byActivity []Bucket
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = s.store.Totals(gctx, scope, now.Add(-recentActivityWindow), now.Add(-newLeadWindow))
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = s.store.LeadsByStatus(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		bySource, err = s.store.LeadsBySource(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		byActivity, err = s.store.ActivitiesByType(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, apperr.Wrap(apperr.KindInternal, "Error fetching dashboard stats", err)
	}

	stats := Stats{
		TotalLeads:       totals.TotalLeads,
		TotalValue:       totals.TotalValue,
		RecentActivities: totals.RecentActivities,
		LeadsLast30Days:  totals.LeadsLast30Days,
		LeadsByStatus:    make([]StatusCount, 0, len(byStatus)),
		LeadsBySource:    make([]SourceCount, 0, len(bySource)),
		ActivitiesByType: make([]TypeCount, 0, len(byActivity)),
	}
	for _, b := range byStatus {
		stats.LeadsByStatus = append(stats.LeadsByStatus, StatusCount{Status: b.Key, Count: b.Count})
	}
	for _, b := range bySource {
		stats.LeadsBySource = append(stats.LeadsBySource, SourceCount{Source: b.Key, Count: b.Count})
	}
	for _, b := range byActivity {
		stats.ActivitiesByType = append(stats.ActivitiesByType, TypeCount{Type: b.Key, Count: b.Count})
	}
	return stats, nil
}

// Performance reports per-assignee results. The window only applies when
// both bounds are given.
func (s *Service) Performance(ctx context.Context, actor access.Actor, startDate, endDate string) ([]Performance, error) {
	if !access.CanManageTeam(actor) {
		return nil, apperr.Forbidden("Access denied. Insufficient permissions.")
	}

	window, err := parseWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.Performance(ctx, window)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Error fetching performance metrics", err)
	}

	result := make([]Performance, 0, len(rows))
	for _, row := range rows {
		result = append(result, Performance{
			User:           PerformanceUser{ID: row.UserID, Name: row.Name, Email: row.Email},
			TotalLeads:     row.TotalLeads,
			TotalValue:     row.TotalValue,
			WonLeads:       row.WonLeads,
			ConversionRate: conversionRate(row.WonLeads, row.TotalLeads),
		})
	}
	return result, nil
}

// conversionRate is the won share in percent, rounded to two decimals.
func conversionRate(won, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(won)/float64(total)*10000) / 100
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseWindow(startDate, endDate string) (*DateRange, error) {
	if startDate == "" || endDate == "" {
		return nil, nil
	}
	start, ok := parseDate(startDate)
	if !ok {
		return nil, apperr.BadRequest("invalid startDate")
	}
	end, ok := parseDate(endDate)
	if !ok {
		return nil, apperr.BadRequest("invalid endDate")
	}
	if end.Before(start) {
		return nil, apperr.BadRequest("endDate must not be before startDate")
	}
	return &DateRange{Start: start, End: end}, nil
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
