// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"crm_backend/platform/config"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// ContextUserIDKey is the gin context key for the authenticated user ID.
	ContextUserIDKey = "userID"
	// ContextRoleKey is the gin context key for the user's role.
	ContextRoleKey = "role"
	// ContextTokenKey is the gin context key for the raw access token.
	ContextTokenKey = "accessToken"
	// RequestIDHeader is echoed on every response.
	RequestIDHeader = "X-Request-ID"

	errMissingToken = "No token, authorization denied"
	errInvalidToken = "Token is not valid"
)

// SessionValidator confirms that a parsed token still maps to a usable account.
// It returns the user's current role so role changes apply without re-login.
type SessionValidator interface {
	ValidateSession(ctx context.Context, rawToken string, userID uuid.UUID) (string, error)
}

// RequestID assigns a request id and stores it on the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs HTTP requests with timing.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		reqLog := log.WithContext(c.Request.Context())

		if err := c.Errors.Last(); err != nil && status >= http.StatusInternalServerError {
			reqLog.HTTPError(c.Request.Method, path, status, err.Err, clientIP)
			return
		}
		reqLog.HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// IPRateLimiter manages per-IP rate limiters.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := i.getLimiter(ip)

		if !limiter.Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "Too many requests, please try again later",
			})
			return
		}

		c.Next()
	}
}

// NewAuthRateLimiter creates a rate limiter for authentication endpoints
// with stricter limits (10 requests per minute, burst of 10).
func NewAuthRateLimiter(log *logger.Logger) *IPRateLimiter {
	return NewIPRateLimiter(rate.Limit(10.0/60.0), 10, log)
}

// AuthRequired returns middleware that validates JWT access tokens.
// The token is read from the Authorization header (Bearer), then the auth
// cookie, then the token query param (EventSource cannot set headers).
// When sessions is non-nil it is consulted after the signature check.
func AuthRequired(cfg config.JWTConfig, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken := extractToken(c, cfg.GetAuthCookieName())
		if rawToken == "" {
			abortUnauthorized(c, errMissingToken)
			return
		}

		claims, err := ParseAccessToken(rawToken, cfg.GetJWTAccessSecret())
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		role := claims.Role
		if sessions != nil {
			role, err = sessions.ValidateSession(c.Request.Context(), rawToken, userID)
			if err != nil {
				abortUnauthorized(c, errInvalidToken)
				return
			}
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Set(ContextTokenKey, rawToken)

		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAnyRole returns middleware that checks the user holds one of roles.
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRoleKey)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Access denied. Insufficient permissions."})
	}
}

// RequireRole returns middleware that checks if the user has the specified role.
func RequireRole(role string) gin.HandlerFunc {
	return RequireAnyRole(role)
}

// AccessClaims are the JWT claims carried by access tokens.
type AccessClaims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// ParseAccessToken verifies an HMAC-signed access token and returns its claims.
func ParseAccessToken(rawToken, secret string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}
	if claims.Type != "access" {
		return nil, errors.New(errInvalidToken)
	}
	return claims, nil
}

func extractToken(c *gin.Context, cookieName string) string {
	if rawToken, ok := extractBearerToken(c.GetHeader("Authorization")); ok {
		return rawToken
	}
	if cookieName != "" {
		if value, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return strings.TrimSpace(c.Query("token"))
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if rawToken == "" {
		return "", false
	}

	return rawToken, true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message})
}
