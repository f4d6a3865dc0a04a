package integrations

import (
	"net/http"

	"crm_backend/internal/access"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type hubSpotRequest struct {
	APIKey  string `json:"apiKey" validate:"max=512"`
	Enabled bool   `json:"enabled"`
}

type slackRequest struct {
	WebhookURL string `json:"webhookUrl" validate:"omitempty,url,max=2048"`
	Enabled    bool   `json:"enabled"`
}

type testRequest struct {
	Type string `json:"type" validate:"required"`
}

type configuredResponse struct {
	Message    string `json:"message"`
	Configured bool   `json:"configured"`
}

type enabledStatus struct {
	Enabled bool `json:"enabled"`
}

type statusResponse struct {
	HubSpot enabledStatus `json:"hubspot"`
	Slack   enabledStatus `json:"slack"`
}

type testResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Handler serves /integrations/webhooks.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Status)
	rg.POST("/hubspot", h.ConfigureHubSpot)
	rg.POST("/slack", h.ConfigureSlack)
	rg.POST("/test", h.Test)
}

func (h *Handler) Status(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	status, err := h.svc.Status(c.Request.Context(), access.ActorFromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, statusResponse{
		HubSpot: enabledStatus{Enabled: status[KindHubSpot]},
		Slack:   enabledStatus{Enabled: status[KindSlack]},
	})
}

func (h *Handler) ConfigureHubSpot(c *gin.Context) {
	var req hubSpotRequest
	if !h.bind(c, &req) {
		return
	}
	h.configure(c, ConfigureInput{Kind: KindHubSpot, Enabled: req.Enabled, Secret: req.APIKey})
}

func (h *Handler) ConfigureSlack(c *gin.Context) {
	var req slackRequest
	if !h.bind(c, &req) {
		return
	}
	h.configure(c, ConfigureInput{Kind: KindSlack, Enabled: req.Enabled, Secret: req.WebhookURL})
}

func (h *Handler) configure(c *gin.Context, in ConfigureInput) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Configure(c.Request.Context(), access.ActorFromIdentity(identity), in); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, configuredResponse{Message: configuredMessage(in.Kind, in.Enabled), Configured: in.Enabled})
}

func (h *Handler) Test(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req testRequest
	if !h.bind(c, &req) {
		return
	}

	message, err := h.svc.Test(c.Request.Context(), access.ActorFromIdentity(identity), req.Type)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, testResponse{Message: message, Success: true})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return false
	}
	return true
}
