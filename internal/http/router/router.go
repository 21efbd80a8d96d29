package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moraeszete/webhook-payments-integrations/internal/http/dto"
	"github.com/moraeszete/webhook-payments-integrations/internal/http/handler"
	"github.com/moraeszete/webhook-payments-integrations/internal/http/handler/webhook"
	"github.com/moraeszete/webhook-payments-integrations/internal/http/middleware"
	"github.com/moraeszete/webhook-payments-integrations/internal/provider"
	"github.com/moraeszete/webhook-payments-integrations/internal/service"
)

const (
	HealthPath  = "/health"
	ReadyPath   = "/ready"
	MetricsPath = "/metrics"
)

type RouterConfig struct {
	Providers    *provider.Registry
	Dependencies map[string]handler.Pinger
	MaxBodyBytes int64
}

// SetupRoutes registers operational endpoints and one POST route per provider.
// Everything outside the operational paths passes through the auth gate, so an
// unknown path without a credential answers 401 rather than 404.
func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	health := handler.NewHealthHandler(cfg.Dependencies)

	router.Use(middleware.AuthGate(services.TokenAuth(), cfg.Providers, middleware.AuthGateConfig{
		SkipPaths:    []string{HealthPath, ReadyPath, MetricsPath},
		MaxBodyBytes: cfg.MaxBodyBytes,
		Metrics:      services.Metrics(),
	}))

	router.GET(HealthPath, health.Health)
	router.GET(ReadyPath, health.Ready)
	router.GET(MetricsPath, gin.WrapH(services.Metrics().Handler()))

	WebhookRouter(router, cfg.Providers, services.EventIngest())

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error:   true,
			Message: dto.MessageRouteNotFound,
			Path:    c.Request.URL.Path,
		})
	})
}

func WebhookRouter(router gin.IRoutes, providers *provider.Registry, eventIngest service.EventIngestService) {
	for _, spec := range providers.All() {
		h := webhook.NewProviderWebhookHandler(spec, eventIngest)
		router.POST(spec.Route, h.HandleEvent)
	}
}
