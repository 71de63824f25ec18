package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/farmlink/marketplace/internal/app"
	iauth "github.com/farmlink/marketplace/internal/auth"
	"github.com/farmlink/marketplace/internal/handlers"
	"github.com/farmlink/marketplace/internal/middleware"
	"github.com/farmlink/marketplace/internal/models"
)

// NewRouter builds the Gin engine, wires middleware and registers the marketplace routes.
// rateStore may be nil, in which case requests are limited per process.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, svc *Services, rateStore middleware.RateStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if svc == nil {
		return nil, fmt.Errorf("services must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.Locale(svc.Resolver))
	// Identify callers before limiting so signed-in users get their own bucket.
	r.Use(middleware.OptionalAuth(jwt))
	r.Use(middleware.RateLimit(rateStore, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))

	registerHealthRoutes(r, db)
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	requireAuth := middleware.Auth(jwt)
	requireAdmin := middleware.RequireRole(svc.Users, models.RoleAdmin)

	api := r.Group("/api")

	registerI18nRoutes(api, handlers.NewI18nHandler(svc.Resolver, cfg.I18n.CookieSecure))
	registerMessageRoutes(api, handlers.NewMessageHandler(svc.Messages), requireAuth)
	registerSubscriptionRoutes(api, handlers.NewSubscriptionHandler(svc.Subscriptions, svc.Users), requireAuth, requireAdmin)
	registerUserRoutes(api, handlers.NewUserHandler(svc.Users), requireAuth, requireAdmin)

	if cfg.Features.Notifications.Enabled {
		hub := svc.Hub
		if !cfg.Features.Notifications.Realtime {
			hub = nil
		}
		registerNotificationRoutes(api, handlers.NewNotificationHandler(svc.Notifications, hub, jwt), requireAuth, requireAdmin)
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
