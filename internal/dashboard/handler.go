package dashboard

import (
	"crm_backend/internal/access"
	"crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type statsResponse struct {
	Stats Stats `json:"stats"`
}

type performanceResponse struct {
	Performance []Performance `json:"performance"`
}

// RegisterRoutes mounts the dashboard routes. privileged guards the team
// performance report.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, privileged gin.HandlerFunc) {
	rg.GET("/stats", h.Stats)
	if privileged != nil {
		rg.GET("/performance", privileged, h.Performance)
		return
	}
	rg.GET("/performance", h.Performance)
}

func (h *Handler) Stats(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), access.ActorFromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, statsResponse{Stats: stats})
}

func (h *Handler) Performance(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	rows, err := h.svc.Performance(c.Request.Context(), access.ActorFromIdentity(identity), c.Query("startDate"), c.Query("endDate"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, performanceResponse{Performance: rows})
}
