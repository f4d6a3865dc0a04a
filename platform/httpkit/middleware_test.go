package httpkit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type jwtConfigStub struct{}

func (jwtConfigStub) GetJWTAccessSecret() string { return testSecret }
func (jwtConfigStub) GetAuthCookieName() string  { return "crm_token" }

type sessionStub struct {
	role string
	err  error
}

func (s sessionStub) ValidateSession(ctx context.Context, rawToken string, userID uuid.UUID) (string, error) {
	return s.role, s.err
}

func signToken(t *testing.T, userID uuid.UUID, role, tokenType string, ttl time.Duration) string {
	t.Helper()
	claims := AccessClaims{
		Role: role,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter(sessions SessionValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(jwtConfigStub{}, sessions), func(c *gin.Context) {
		id := MustGetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"id": id.UserID().String(), "role": id.Role()})
	})
	r.GET("/admin", AuthRequired(jwtConfigStub{}, sessions), RequireAnyRole("Admin", "Manager"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthRequiredTokenSources(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, userID, "Admin", "access", time.Hour)

	cases := []struct {
		name  string
		setup func(req *http.Request)
	}{
		{"bearer", func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }},
		{"cookie", func(req *http.Request) { req.AddCookie(&http.Cookie{Name: "crm_token", Value: token}) }},
		{"query", func(req *http.Request) {
			q := req.URL.Query()
			q.Set("token", token)
			req.URL.RawQuery = q.Encode()
		}},
	}

	router := newAuthRouter(nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthRequiredRejects(t *testing.T) {
	userID := uuid.New()
	router := newAuthRouter(nil)

	cases := map[string]string{
		"missing":    "",
		"expired":    signToken(t, userID, "Admin", "access", -time.Minute),
		"wrong type": signToken(t, userID, "Admin", "refresh", time.Hour),
		"garbage":    "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthRequiredUsesSessionRole(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, userID, "Admin", "access", time.Hour)

	router := newAuthRouter(sessionStub{role: "Sales Executive"})
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected demoted user to get 403, got %d", rec.Code)
	}

	router = newAuthRouter(sessionStub{err: errors.New("revoked")})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked session to get 401, got %d", rec.Code)
	}
}

func TestHandleErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apperr.NotFound("Lead not found"), http.StatusNotFound},
		{"forbidden", apperr.Forbidden("Access denied"), http.StatusForbidden},
		{"validation", apperr.Validation("bad"), http.StatusBadRequest},
		{"conflict", apperr.Conflict("dup"), http.StatusConflict},
		{"untyped", errors.New("db exploded"), http.StatusInternalServerError},
	}

	ConfigureErrors("production")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			HandleError(c, tc.err)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	HandleError(c, errors.New("db exploded"))
	if body := rec.Body.String(); body == "" || strings.Contains(body, "db exploded") {
		t.Fatalf("expected generic message in production, got %s", body)
	}
}
