// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"net/http"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

// SessionLookupFunc lets the middleware consult the current session
// without importing the auth package.
type SessionLookupFunc func(r *http.Request) *types.Session

type Middleware struct {
	resolver      ResolverInterface
	sessionLookup SessionLookupFunc

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewMiddleware(
	resolver ResolverInterface,
	sessionLookup SessionLookupFunc,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Middleware {
	return &Middleware{
		resolver:      resolver,
		sessionLookup: sessionLookup,
		tracer:        tracer,
		monitor:       monitor,
		logger:        logger,
	}
}

// ResolveTenant runs one resolution pass per request and memoizes the
// outcome in the request context. Downstream handlers read it via
// FromContext and never re-resolve mid-request.
func (m *Middleware) ResolveTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := m.tracer.Start(r.Context(), "tenant.Middleware.ResolveTenant")
			defer span.End()

			rc := RequestContext{
				Host: r.Host,
				Path: r.URL.Path,
			}
			if m.sessionLookup != nil {
				rc.Session = m.sessionLookup(r)
			}

			t, err := m.resolver.Resolve(ctx, rc)
			if err != nil {
				m.logger.Errorf("tenant resolution failed: %v", err)
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(ctx, t)))
		})
	}
}
