// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
	"github.com/edusuite/platform/pkg/tenant"
)

type API struct {
	service      ServiceInterface
	limiter      *LoginRateLimiter
	csrfLifetime time.Duration

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewAPI(
	service ServiceInterface,
	limiter *LoginRateLimiter,
	csrfLifetime time.Duration,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *API {
	return &API{
		service:      service,
		limiter:      limiter,
		csrfLifetime: csrfLifetime,
		tracer:       tracer,
		monitor:      monitor,
		logger:       logger,
	}
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Group(func(r chi.Router) {
		if a.limiter != nil {
			r.Use(a.limiter.Handler())
		}
		r.Post("/api/v0/auth/login", a.login)
		r.Post("/api/v0/auth/password-reset", a.passwordReset)
	})
	mux.Group(func(r chi.Router) {
		r.Use(NewMiddleware(a.service, a.logger).RequireCSRF(a.csrfLifetime))
		r.Post("/api/v0/auth/logout", a.logout)
	})
	mux.Get("/api/v0/auth/session", a.session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Scope     string   `json:"scope"`
	Role      string   `json:"role"`
	CSRFToken string   `json:"csrf_token"`
	Perms     []string `json:"permissions"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "auth.API.login")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// A tenant resolved from the request scopes the login; none means a
	// platform-admin attempt.
	t, _ := tenant.FromContext(ctx)

	sess, err := a.service.Login(ctx, &LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IP:        ClientIP(r),
		UserAgent: r.UserAgent(),
		Tenant:    t,
	})
	if err != nil {
		var locked *types.LockedOutError
		if errors.As(err, &locked) {
			http.Error(w, locked.Error(), http.StatusTooManyRequests)
			return
		}
		var aerr *types.AuthError
		if errors.As(err, &aerr) {
			http.Error(w, aerr.Message, http.StatusUnauthorized)
			return
		}
		a.logger.Errorf("login failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{
		Scope:     sess.Scope,
		Role:      sess.Role,
		CSRFToken: sess.CSRFToken,
		Perms:     sess.Permissions,
	}); err != nil {
		a.logger.Errorf("failed to encode login response: %v", err)
	}
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "auth.API.logout")
	defer span.End()

	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		if err := a.service.Logout(ctx, cookie.Value); err != nil {
			a.logger.Errorf("logout failed: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) session(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "auth.API.session")
	defer span.End()

	sess := SessionFromContext(r.Context())
	if sess == nil {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{
		Scope:     sess.Scope,
		Role:      sess.Role,
		CSRFToken: sess.CSRFToken,
		Perms:     sess.Permissions,
	}); err != nil {
		a.logger.Errorf("failed to encode session: %v", err)
	}
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (a *API) passwordReset(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "auth.API.passwordReset")
	defer span.End()

	var req passwordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	t, _ := tenant.FromContext(ctx)
	if err := a.service.RequestPasswordReset(ctx, t, req.Email); err != nil {
		a.logger.Errorf("password reset failed: %v", err)
	}

	// Identical answer whether or not the address exists.
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"message": "if the address exists, reset instructions were sent",
	}); err != nil {
		a.logger.Errorf("failed to encode reset response: %v", err)
	}
}
