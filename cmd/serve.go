// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/edusuite/platform/internal/audit"
	"github.com/edusuite/platform/internal/config"
	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring/prometheus"
	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/pkg/auth"
	"github.com/edusuite/platform/pkg/provisioner"
	"github.com/edusuite/platform/pkg/tenant"
	"github.com/edusuite/platform/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := serve(); err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		panic(fmt.Errorf("issues with environment sourcing: %s", err))
	}

	logger := logging.NewLogger(specs.LogLevel)
	logger.Debugf("env vars: %v", specs)
	defer logger.Sync()

	monitor := prometheus.NewMonitor("platform", logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	manager := db.NewManager(db.ManagerConfig{
		DSN:             specs.DSN,
		TenantDBPrefix:  specs.TenantDBPrefix,
		Encoding:        specs.TenantDBEncoding,
		Collation:       specs.TenantDBCollation,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
		QueryLogEnabled: specs.QueryLogEnabled,
	}, tracer, monitor, logger)
	defer manager.Close()

	platformClient, err := manager.Platform(context.Background())
	if err != nil {
		return fmt.Errorf("failed to reach platform database: %v", err)
	}

	s := storage.NewStorage(platformClient, tracer, monitor, logger)
	auditor := audit.NewAuditor(s, tracer, logger)

	// Lockout counters live in Redis when configured, otherwise in the
	// platform database.
	var attempts auth.AttemptStore
	if specs.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     specs.RedisAddr,
			Password: specs.RedisPassword,
			DB:       specs.RedisDB,
		})
		defer rdb.Close()
		attempts = auth.NewRedisAttemptStore(rdb, specs.LockoutWindow)
		logger.Info("using redis lockout store")
	} else {
		attempts = auth.NewStorageAttemptStore(s, specs.LockoutWindow)
	}

	authService := auth.NewService(auth.Config{
		LockoutThreshold: specs.LockoutThreshold,
		LockoutWindow:    specs.LockoutWindow,
		SessionTimeout:   specs.SessionTimeout,
		BcryptCost:       specs.BcryptCost,
	}, manager, s, attempts, auditor, auth.NewLogNotifier(logger), tracer, monitor, logger)

	resolver := tenant.NewResolver(s, specs.TenantPathPrefix, tracer, monitor, logger)
	tenantService := tenant.NewService(s, tracer, monitor, logger)

	notifier := provisioner.NewLogNotifier(specs.ProvisionNotifyFrom, logger)
	provisionService := provisioner.NewService(manager, s, notifier, specs.BcryptCost, specs.MinPasswordLength, tracer, monitor, logger)

	router := web.NewRouter(web.RouterDeps{
		Manager:        manager,
		Platform:       platformClient,
		Resolver:       resolver,
		TenantService:  tenantService,
		AuthService:    authService,
		Provisioner:    provisionService,
		LoginRateLimit: auth.NewLoginRateLimiter(specs.LoginRatePerMin, logger),
		CSRFLifetime:   specs.CSRFTokenLifetime,
		AllowedOrigins: specs.AllowedOrigins,
	}, tracer, monitor, logger)

	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go sessionCleanupLoop(cleanupCtx, authService, specs.SessionTimeout, logger)

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}

	return serverError
}

// sessionCleanupLoop sweeps idle sessions at a fraction of the timeout so
// durable session rows do not pile up between logins.
func sessionCleanupLoop(ctx context.Context, service auth.ServiceInterface, timeout time.Duration, logger logging.LoggerInterface) {
	interval := timeout / 3
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := service.CleanupExpiredSessions(ctx); err != nil {
				logger.Errorf("session cleanup failed: %v", err)
			}
		}
	}
}
