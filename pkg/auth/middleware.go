// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"crypto/subtle"
	"net"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/types"
)

// SessionCookie is the browser cookie carrying the session token.
const SessionCookie = "edusuite_session"

type Middleware struct {
	service ServiceInterface
	logger  logging.LoggerInterface
}

func NewMiddleware(service ServiceInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{service: service, logger: logger}
}

// LoadSession attaches the session for the request's cookie, if any. It
// never rejects: anonymous requests pass through without a session.
func (m *Middleware) LoadSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := m.service.IsLoggedIn(r.Context(), cookie.Value, "")
			if err != nil {
				m.logger.Errorf("session lookup failed: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// SessionLookup adapts the request-context session for packages that
// cannot import this one.
func SessionLookup(r *http.Request) *types.Session {
	return SessionFromContext(r.Context())
}

// RequireSession rejects anonymous requests.
func (m *Middleware) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()) == nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission rejects sessions whose grants do not cover the
// required permission. Wildcard grants apply.
func (m *Middleware) RequirePermission(required string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if !HasPermission(sess.Permissions, required) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFHeader carries the token issued at login for state-changing calls.
const CSRFHeader = "X-CSRF-Token"

// RequireCSRF rejects state-changing requests whose header token does
// not match the session's, or whose token has outlived the configured
// lifetime. Requests without a session pass through; RequireSession
// decides whether anonymity is acceptable.
func (m *Middleware) RequireCSRF(lifetime time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(CSRFHeader)
			match := subtle.ConstantTimeCompare([]byte(token), []byte(sess.CSRFToken)) == 1
			expired := lifetime > 0 && time.Since(sess.CreatedAt) > lifetime
			if token == "" || !match || expired {
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimiter throttles login attempts per client IP ahead of the
// lockout counters, blunting brute force against many identities at once.
type LoginRateLimiter struct {
	limiters *gocache.Cache
	perMin   int
	logger   logging.LoggerInterface
}

func NewLoginRateLimiter(perMin int, logger logging.LoggerInterface) *LoginRateLimiter {
	return &LoginRateLimiter{
		limiters: gocache.New(10*time.Minute, 10*time.Minute),
		perMin:   perMin,
		logger:   logger,
	}
}

func (l *LoginRateLimiter) limiter(ip string) *rate.Limiter {
	if v, ok := l.limiters.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.perMin)
	l.limiters.Set(ip, lim, gocache.DefaultExpiration)
	return lim
}

func (l *LoginRateLimiter) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !l.limiter(ip).Allow() {
				l.logger.Warnf("login rate limit hit for %s", ip)
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP strips the port from the remote address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
