package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crm_backend/internal/leads/repository"
	"crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubFeed struct {
	userID uuid.UUID
	limit  int
	items  []repository.RecentActivity
}

func (s *stubFeed) ListRecentForAssignee(_ context.Context, userID uuid.UUID, limit int) ([]repository.RecentActivity, error) {
	s.userID = userID
	s.limit = limit
	return s.items, nil
}

func TestRecentFormatsMessages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	user := uuid.New()
	feed := &stubFeed{items: []repository.RecentActivity{{
		ID:        uuid.New(),
		Type:      "Call",
		Title:     "Intro",
		LeadID:    uuid.New(),
		LeadName:  "Acme",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}}

	r := gin.New()
	group := r.Group("/notifications", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, user)
		c.Set(httpkit.ContextRoleKey, "Sales Executive")
	})
	NewHTTPHandler(feed, nil).RegisterRoutes(group)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications/recent", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if feed.userID != user || feed.limit != 20 {
		t.Fatalf("expected feed for %s limit 20, got %s %d", user, feed.userID, feed.limit)
	}

	var resp RecentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].Message != `Call on lead "Acme"` {
		t.Fatalf("unexpected notifications %+v", resp.Notifications)
	}
}

func TestStreamRouteRequiresGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHTTPHandler(&stubFeed{}, nil).RegisterRoutes(r.Group("/notifications"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications/stream", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without gateway, got %d", w.Code)
	}
}
