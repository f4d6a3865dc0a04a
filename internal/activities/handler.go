package activities

import (
	"net/http"

	"crm_backend/internal/access"
	"crm_backend/internal/leads/transport"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves the /activities routes.
type Handler struct {
	svc *Service
	val *validator.Validator
}

// NewHandler creates an activities handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

type activityEnvelope struct {
	Message  string                     `json:"message,omitempty"`
	Activity transport.ActivityResponse `json:"activity"`
}

type activityList struct {
	Activities []transport.ActivityResponse `json:"activities"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/lead/:leadId", h.ListForLead)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) ListForLead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	items, err := h.svc.ListForLead(c.Request.Context(), access.ActorFromIdentity(identity), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, activityList{Activities: items})
}

func (h *Handler) Create(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	activity, err := h.svc.Create(c.Request.Context(), access.ActorFromIdentity(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, activityEnvelope{Message: "Activity created successfully", Activity: activity})
}

func (h *Handler) Update(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid activity id", nil)
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	activity, err := h.svc.Update(c.Request.Context(), access.ActorFromIdentity(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, activityEnvelope{Message: "Activity updated successfully", Activity: activity})
}

func (h *Handler) Delete(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid activity id", nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), access.ActorFromIdentity(identity), id)) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{Message: "Activity deleted successfully"})
}
