package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm_backend/internal/access"
	"crm_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu        sync.Mutex
	scopes    []*uuid.UUID
	since     [2]time.Time
	window    *DateRange
	perf      []PerformanceRow
	statusErr error
}

func (f *fakeStore) record(scope *uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, scope)
}

func (f *fakeStore) Totals(_ context.Context, assignee *uuid.UUID, activitySince, leadSince time.Time) (Totals, error) {
	f.record(assignee)
	f.mu.Lock()
	f.since = [2]time.Time{activitySince, leadSince}
	f.mu.Unlock()
	return Totals{TotalLeads: 4, TotalValue: 1500.5, RecentActivities: 3, LeadsLast30Days: 2}, nil
}

func (f *fakeStore) LeadsByStatus(_ context.Context, assignee *uuid.UUID) ([]Bucket, error) {
	f.record(assignee)
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return []Bucket{{Key: "New", Count: 3}, {Key: "Won", Count: 1}}, nil
}

func (f *fakeStore) LeadsBySource(_ context.Context, assignee *uuid.UUID) ([]Bucket, error) {
	f.record(assignee)
	return []Bucket{{Key: "Website", Count: 2}}, nil
}

func (f *fakeStore) ActivitiesByType(_ context.Context, assignee *uuid.UUID) ([]Bucket, error) {
	f.record(assignee)
	return []Bucket{{Key: "Call", Count: 5}}, nil
}

func (f *fakeStore) Performance(_ context.Context, window *DateRange) ([]PerformanceRow, error) {
	f.window = window
	return f.perf, nil
}

func TestStatsScopesSalesExecutive(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	actor := access.Actor{ID: uuid.New(), Role: access.RoleSalesExecutive}
	stats, err := svc.Stats(context.Background(), actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.scopes) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(store.scopes))
	}
	for _, scope := range store.scopes {
		if scope == nil || *scope != actor.ID {
			t.Fatalf("expected every query scoped to %s, got %v", actor.ID, scope)
		}
	}
	if !store.since[0].Equal(now.AddDate(0, 0, -7)) || !store.since[1].Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("unexpected windows: %v", store.since)
	}
	if stats.TotalLeads != 4 || stats.TotalValue != 1500.5 || stats.RecentActivities != 3 || stats.LeadsLast30Days != 2 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if len(stats.LeadsByStatus) != 2 || stats.LeadsByStatus[1] != (StatusCount{Status: "Won", Count: 1}) {
		t.Fatalf("unexpected status buckets: %+v", stats.LeadsByStatus)
	}
	if len(stats.LeadsBySource) != 1 || stats.LeadsBySource[0].Source != "Website" {
		t.Fatalf("unexpected source buckets: %+v", stats.LeadsBySource)
	}
	if len(stats.ActivitiesByType) != 1 || stats.ActivitiesByType[0] != (TypeCount{Type: "Call", Count: 5}) {
		t.Fatalf("unexpected activity buckets: %+v", stats.ActivitiesByType)
	}
}

func TestStatsUnscopedForManager(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	if _, err := svc.Stats(context.Background(), access.Actor{ID: uuid.New(), Role: access.RoleManager}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, scope := range store.scopes {
		if scope != nil {
			t.Fatalf("expected unscoped queries, got %v", scope)
		}
	}
}

func TestStatsQueryFailure(t *testing.T) {
	svc := NewService(&fakeStore{statusErr: errors.New("db down")})

	_, err := svc.Stats(context.Background(), access.Actor{ID: uuid.New(), Role: access.RoleAdmin})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestPerformance(t *testing.T) {
	userID := uuid.New()
	store := &fakeStore{perf: []PerformanceRow{
		{UserID: userID, Name: "Sam", Email: "sam@example.com", TotalLeads: 3, TotalValue: 900, WonLeads: 1},
		{UserID: uuid.New(), Name: "Zoe", Email: "zoe@example.com"},
	}}
	svc := NewService(store)
	admin := access.Actor{ID: uuid.New(), Role: access.RoleAdmin}

	rows, err := svc.Performance(context.Background(), admin, "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.window == nil || store.window.Start.Format("2006-01-02") != "2026-01-01" || store.window.End.Format("2006-01-02") != "2026-01-31" {
		t.Fatalf("unexpected window: %+v", store.window)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].User.ID != userID || rows[0].ConversionRate != 33.33 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].ConversionRate != 0 {
		t.Fatalf("expected zero conversion without leads, got %v", rows[1].ConversionRate)
	}
}

func TestPerformanceWindowNeedsBothBounds(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)
	admin := access.Actor{ID: uuid.New(), Role: access.RoleAdmin}

	if _, err := svc.Performance(context.Background(), admin, "2026-01-01", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.window != nil {
		t.Fatalf("expected no window, got %+v", store.window)
	}
}

func TestPerformanceRejects(t *testing.T) {
	svc := NewService(&fakeStore{})
	admin := access.Actor{ID: uuid.New(), Role: access.RoleAdmin}

	tests := []struct {
		name  string
		actor access.Actor
		start string
		end   string
		kind  apperr.Kind
	}{
		{"sales executive", access.Actor{ID: uuid.New(), Role: access.RoleSalesExecutive}, "", "", apperr.KindForbidden},
		{"bad start", admin, "yesterday", "2026-01-31", apperr.KindBadRequest},
		{"bad end", admin, "2026-01-01", "31/01/2026", apperr.KindBadRequest},
		{"reversed", admin, "2026-02-01", "2026-01-01", apperr.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Performance(context.Background(), tt.actor, tt.start, tt.end)
			if !apperr.Is(err, tt.kind) {
				t.Fatalf("expected kind %d, got %v", tt.kind, err)
			}
		})
	}
}
