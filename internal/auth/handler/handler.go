package handler

import (
	"net/http"
	"time"

	"crm_backend/internal/access"
	"crm_backend/internal/auth/service"
	"crm_backend/internal/auth/transport"
	"crm_backend/platform/config"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc    *service.Service
	cookie config.CookieConfig
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgForgotPassword   = "If an account with that email exists, a password reset link has been sent."
)

func New(svc *service.Service, cookie config.CookieConfig, val *validator.Validator) *Handler {
	return &Handler{svc: svc, cookie: cookie, val: val}
}

// RegisterPublicRoutes mounts the unauthenticated credential endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.Register)
	rg.POST("/login", h.Login)
	rg.POST("/forgot-password", h.ForgotPassword)
	rg.POST("/reset-password", h.ResetPassword)
}

func (h *Handler) Register(c *gin.Context) {
	var req transport.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Register(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	h.setAuthCookie(c, result.Token, result.ExpiresAt)
	httpkit.Created(c, transport.AuthResponse{Message: "User registered successfully", Token: result.Token, User: result.User})
}

func (h *Handler) Login(c *gin.Context) {
	var req transport.LoginRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	h.setAuthCookie(c, result.Token, result.ExpiresAt)
	httpkit.OK(c, transport.AuthResponse{Message: "Login successful", Token: result.Token, User: result.User})
}

func (h *Handler) Logout(c *gin.Context) {
	h.svc.Logout(c.Request.Context(), httpkit.RawToken(c))
	h.clearAuthCookie(c)
	httpkit.OK(c, transport.MessageResponse{Message: "Logout successful"})
}

func (h *Handler) Me(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	user, err := h.svc.Me(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MeResponse{User: user})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req transport.ForgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if httpkit.HandleError(c, h.svc.ForgotPassword(c.Request.Context(), req.Email)) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{Message: msgForgotPassword})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req transport.ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if httpkit.HandleError(c, h.svc.ResetPassword(c.Request.Context(), req.Token, req.Password)) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{Message: "Password has been reset successfully"})
}

func (h *Handler) ListActiveUsers(c *gin.Context) {
	users, err := h.svc.ListActiveUsers(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.UsersResponse{Users: users})
}

func (h *Handler) ListUsers(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	users, err := h.svc.ListUsers(c.Request.Context(), access.ActorFromIdentity(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.UserDetailsResponse{Users: users})
}

func (h *Handler) CreateUser(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	var req transport.CreateUserRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.svc.CreateUser(c.Request.Context(), access.ActorFromIdentity(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.UserEnvelope{Message: "User created successfully", User: user})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseUserID(c)
	if !ok {
		return
	}
	var req transport.UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), access.ActorFromIdentity(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.UserEnvelope{Message: "User updated successfully", User: user})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseUserID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteUser(c.Request.Context(), access.ActorFromIdentity(identity), id)) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{Message: "User deleted successfully"})
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid user id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) setAuthCookie(c *gin.Context, value string, expiresAt time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.GetAuthCookieName(),
		Value:    value,
		Path:     h.cookie.GetAuthCookiePath(),
		Domain:   h.cookie.GetAuthCookieDomain(),
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.GetAuthCookieSecure(),
		SameSite: h.cookie.GetAuthCookieSameSite(),
	})
}

func (h *Handler) clearAuthCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.cookie.GetAuthCookieName(),
		Value:    "",
		Path:     h.cookie.GetAuthCookiePath(),
		Domain:   h.cookie.GetAuthCookieDomain(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.GetAuthCookieSecure(),
		SameSite: h.cookie.GetAuthCookieSameSite(),
	})
}
