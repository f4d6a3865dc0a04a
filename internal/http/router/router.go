// Package router assembles the gin engine from the registered modules.
package router

import (
	"context"
	"net/http"
	"time"

	"crm_backend/internal/access"
	apphttp "crm_backend/internal/http"
	"crm_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New builds the engine: global middleware, health probe, then every module.
func New(app *apphttp.App) *gin.Engine {
	if app.Config.GetEnv() == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpkit.ConfigureErrors(app.Config.GetEnv())

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestID())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(cors.New(corsConfig(app.Config)))

	engine.GET("/api/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339)}
		if app.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := app.Health.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "DEGRADED"
			}
		}
		c.JSON(status, body)
	})

	api := engine.Group("/api/v1")
	authMiddleware := httpkit.AuthRequired(app.Config, app.Sessions)
	protected := api.Group("")
	protected.Use(authMiddleware)

	ctx := &apphttp.RouterContext{
		Engine:            engine,
		V1:                api,
		Protected:         protected,
		RequirePrivileged: httpkit.RequireAnyRole(string(access.RoleAdmin), string(access.RoleManager)),
		RequireAdmin:      httpkit.RequireRole(string(access.RoleAdmin)),
		Config:            app.Config,
		AuthMiddleware:    authMiddleware,
		AuthRateLimiter:   httpkit.NewAuthRateLimiter(app.Logger),
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Debug("registered module routes", "module", module.Name())
	}

	engine.NoRoute(func(c *gin.Context) {
		httpkit.Error(c, http.StatusNotFound, "Route not found", nil)
	})

	return engine
}

func corsConfig(cfg apphttp.RouterConfig) cors.Config {
	conf := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpkit.RequestIDHeader},
		ExposeHeaders:    []string{httpkit.RequestIDHeader},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = cfg.GetCORSOrigins()
	}
	return conf
}
