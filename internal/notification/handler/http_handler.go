package handler

import (
	"context"
	"fmt"
	"time"

	"crm_backend/internal/leads/repository"
	"crm_backend/internal/notification/sse"
	"crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const recentLimit = 20

// FeedReader lists recent activity on the leads a user is assigned to.
type FeedReader interface {
	ListRecentForAssignee(ctx context.Context, userID uuid.UUID, limit int) ([]repository.RecentActivity, error)
}

type HTTPHandler struct {
	feed    FeedReader
	gateway *sse.Gateway
}

func NewHTTPHandler(feed FeedReader, gateway *sse.Gateway) *HTTPHandler {
	return &HTTPHandler{feed: feed, gateway: gateway}
}

type NotificationItem struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	LeadID    uuid.UUID `json:"leadId"`
}

type RecentResponse struct {
	Notifications []NotificationItem `json:"notifications"`
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recent", h.Recent)
	if h.gateway != nil {
		rg.GET("/stream", h.gateway.Handler())
	}
}

func (h *HTTPHandler) Recent(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.feed.ListRecentForAssignee(c.Request.Context(), identity.UserID(), recentLimit)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]NotificationItem, 0, len(items))
	for _, item := range items {
		out = append(out, NotificationItem{
			ID:        item.ID,
			Type:      item.Type,
			Message:   fmt.Sprintf("%s on lead %q", item.Type, item.LeadName),
			Timestamp: item.CreatedAt,
			LeadID:    item.LeadID,
		})
	}
	httpkit.OK(c, RecentResponse{Notifications: out})
}
