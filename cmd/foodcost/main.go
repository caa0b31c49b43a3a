package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/almoud/foodcost/pkg/audit"
	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/config"
	"github.com/almoud/foodcost/pkg/middleware"
	"github.com/almoud/foodcost/pkg/observability"
	"github.com/almoud/foodcost/pkg/rbac"
	"github.com/almoud/foodcost/pkg/tenant"
	"github.com/almoud/foodcost/pkg/users"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting foodcost backend")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// migrations run in dependency order: roles and users reference tenants
	if err := tenant.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("tenant migrations failed: %w", err)
	}
	if err := rbac.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("rbac migrations failed: %w", err)
	}
	if err := users.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("user migrations failed: %w", err)
	}

	// redis backs the login rate limiter only
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, login rate limiting disabled")
		}
	}

	// observability
	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// audit trail
	auditStore, err := audit.NewDBStore(db, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize audit store: %w", err)
	}
	retention := audit.NewRetentionJob(auditStore, cfg.Audit.Retention, cfg.Audit.CleanupSchedule, logger)
	if err := retention.Start(); err != nil {
		return fmt.Errorf("failed to start audit retention job: %w", err)
	}
	defer retention.Stop()

	// stores and domain services
	matrix := rbac.DefaultMatrix()
	tenantStore := tenant.NewStore(db)
	tenantCache := tenant.NewCachingDirectory(tenantStore, cfg.Tenancy.TenantCacheSize, cfg.Tenancy.TenantCacheTTL)
	roleStore := rbac.NewStore(db, matrix)
	userStore := users.NewStore(db)

	resolver := tenant.NewResolver(tenantCache, cfg.Tenancy.RootDomain)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	guard := rbac.NewPermissionMiddleware(userStore, matrix, auditStore, logger, metrics)

	// middleware chain
	authMW := middleware.NewAuthMiddleware(tokens, logger)
	tenantMW := middleware.NewTenantContextMiddleware(resolver, logger, metrics)

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(logger))
	if metrics != nil {
		router.Use(metrics.HTTPMiddleware)
	}

	// public auth surface, login behind the rate limiter
	authHandlers := users.NewAuthHandlers(userStore, tokens, tenantCache, cfg.Tenancy.RootDomain, auditStore, logger, metrics)
	public := router.PathPrefix("/api").Subrouter()
	if redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow, "ratelimit:login", logger)
		public.Use(mux.MiddlewareFunc(limiter.Handler))
	}
	authHandlers.RegisterRoutes(public)

	// protected surface: authenticated, tenant-resolved
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(mux.MiddlewareFunc(authMW.Handler))
	protected.Use(mux.MiddlewareFunc(tenantMW.Handler))

	authHandlers.RegisterProtectedRoutes(protected)
	users.NewHandlers(userStore, auditStore, logger).RegisterRoutes(protected, guard)
	rbac.NewHandlers(roleStore).RegisterRoutes(protected, guard)

	// platform operator surface
	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(mux.MiddlewareFunc(middleware.RequireSuperAdmin))
	tenant.NewHandlers(tenantStore, tenantCache, userStore, roleStore, auditStore, logger, metrics).RegisterRoutes(admin)
	audit.NewHandlers(auditStore).RegisterRoutes(admin)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// health and metrics on their own port
	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("api server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("health server shutdown failed")
		}
		return nil
	})

	return g.Wait()
}
