package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/moraeszete/webhook-payments-integrations/common/id"
	"github.com/moraeszete/webhook-payments-integrations/common/logger"
	"github.com/moraeszete/webhook-payments-integrations/common/otel"
	"github.com/moraeszete/webhook-payments-integrations/core/config"
	"github.com/moraeszete/webhook-payments-integrations/core/db"
	"github.com/moraeszete/webhook-payments-integrations/internal/claim"
	"github.com/moraeszete/webhook-payments-integrations/internal/http/handler"
	"github.com/moraeszete/webhook-payments-integrations/internal/http/middleware"
	httprouter "github.com/moraeszete/webhook-payments-integrations/internal/http/router"
	"github.com/moraeszete/webhook-payments-integrations/internal/metrics"
	"github.com/moraeszete/webhook-payments-integrations/internal/provider"
	"github.com/moraeszete/webhook-payments-integrations/internal/queue"
	"github.com/moraeszete/webhook-payments-integrations/internal/service"
	"github.com/moraeszete/webhook-payments-integrations/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "webhook server starting",
		"env", cfg.Env,
		"claim_backend", cfg.Claims.Backend,
		"queue_backend", cfg.Queue.Backend,
	)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err, "node_id", cfg.NodeID)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to apply schema", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	deps := map[string]handler.Pinger{"postgres": database}

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		if cfg.Redis.PoolSize > 0 {
			redisOpts.PoolSize = cfg.Redis.PoolSize
		}

		redisClient = redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "pool_size", redisOpts.PoolSize)
	}

	stores := store.NewStores(database.Queries())

	var claims claim.Store
	var postgresClaims *claim.PostgresStore
	switch cfg.Claims.Backend {
	case config.ClaimBackendPostgres:
		postgresClaims = claim.NewPostgresStore(database.Queries())
		claims = postgresClaims
	default:
		claims = claim.NewRedisStore(redisClient)
		deps["redis"] = claims
	}

	var writer queue.Writer
	switch cfg.Queue.Backend {
	case config.QueueBackendRedis:
		writer = queue.NewRedisWriter(redisClient, cfg.Queue.StreamPrefix, slog.Default())
		if _, ok := deps["redis"]; !ok {
			deps["redis"] = claim.NewRedisStore(redisClient)
		}
	default:
		writer = queue.NewPostgresWriter(stores.QueuedEvents())
	}
	defer writer.Close()

	services := service.NewServices(service.ServicesConfig{
		Tokens:  stores.Tokens(),
		Claims:  claims,
		Queue:   writer,
		Metrics: metrics.New(),
		Ingest: service.IngestConfig{
			Namespace: cfg.Claims.Namespace,
			TTL:       cfg.Claims.TTL,
		},
	})

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if postgresClaims != nil {
		go runSweeper(sweepCtx, postgresClaims, cfg.Claims.SweepInterval)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, deps)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupCORS(cfg).Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, deps map[string]handler.Pinger) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		Providers:    provider.Default(),
		Dependencies: deps,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	})

	return router
}

func setupCORS(cfg config.Config) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
}

// runSweeper deletes expired claim rows. Claim correctness does not depend on it;
// an expired row is taken over atomically by the next claim either way.
func runSweeper(ctx context.Context, claims *claim.PostgresStore, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := claims.Sweep(ctx)
			if err != nil {
				slog.WarnContext(ctx, "claim sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "expired claims swept", "count", n)
			}
		}
	}
}

const banner = `
 webhook-ingest
 ==============
 idempotent provider webhook intake
`
