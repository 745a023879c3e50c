// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/pkg/auth"
	"github.com/edusuite/platform/pkg/metrics"
	"github.com/edusuite/platform/pkg/provisioner"
	"github.com/edusuite/platform/pkg/status"
	"github.com/edusuite/platform/pkg/tenant"
)

// RouterDeps carries the wired services the HTTP surface exposes.
type RouterDeps struct {
	Manager        db.ManagerInterface
	Platform       db.DBClientInterface
	Resolver       tenant.ResolverInterface
	TenantService  tenant.ServiceInterface
	AuthService    auth.ServiceInterface
	Provisioner    provisioner.ServiceInterface
	LoginRateLimit *auth.LoginRateLimiter
	CSRFLifetime   time.Duration
	AllowedOrigins []string
}

func NewRouter(
	deps RouterDeps,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	authMiddleware := auth.NewMiddleware(deps.AuthService, logger)
	tenantMiddleware := tenant.NewMiddleware(deps.Resolver, auth.SessionLookup, tracer, monitor, logger)

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS(origins),
		db.TransactionMiddleware(deps.Platform, logger),
		authMiddleware.LoadSession(),
		tenantMiddleware.ResolveTenant(),
	)
	router.Use(middlewares...)

	metrics.NewAPI(monitor, logger).RegisterEndpoints(router)
	status.NewAPI(deps.Manager, monitor, logger).RegisterEndpoints(router)
	auth.NewAPI(deps.AuthService, deps.LoginRateLimit, deps.CSRFLifetime, tracer, monitor, logger).RegisterEndpoints(router)

	// The tenant registry and provisioning endpoints administer the whole
	// platform. Only authenticated sessions holding the management
	// permission reach them.
	router.Group(func(admin chi.Router) {
		admin.Use(
			authMiddleware.RequireSession(),
			authMiddleware.RequirePermission("tenant.manage"),
		)
		tenant.NewAPI(deps.TenantService, tracer, monitor, logger).RegisterEndpoints(admin)
		provisioner.NewAPI(deps.Provisioner, tracer, monitor, logger).RegisterEndpoints(admin)
	})

	return tracing.NewMiddleware(monitor, logger).OpenTelemetry(router)
}
