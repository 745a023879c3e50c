// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
	"github.com/edusuite/platform/pkg/auth"
	"github.com/edusuite/platform/pkg/provisioner"
	"github.com/edusuite/platform/pkg/tenant"
)

type fakeAuthService struct {
	sessions map[string]*types.Session
}

var _ auth.ServiceInterface = (*fakeAuthService)(nil)

func (f *fakeAuthService) Login(context.Context, *auth.LoginRequest) (*types.Session, error) {
	panic("not expected in this test")
}

func (f *fakeAuthService) IsLoggedIn(_ context.Context, token, scope string, _ ...string) (*types.Session, error) {
	if s, ok := f.sessions[token]; ok && (scope == "" || s.Scope == scope) {
		return s, nil
	}
	return nil, nil
}

func (f *fakeAuthService) Logout(context.Context, string) error { return nil }

func (f *fakeAuthService) RequestPasswordReset(context.Context, *types.Tenant, string) error {
	return nil
}

func (f *fakeAuthService) CleanupExpiredSessions(context.Context) (int64, error) { return 0, nil }

type fakeTenantAdmin struct {
	statusCalls []types.TenantStatus
}

var _ tenant.ServiceInterface = (*fakeTenantAdmin)(nil)

func (f *fakeTenantAdmin) ListTenants(context.Context) ([]*types.Tenant, error) {
	return nil, nil
}

func (f *fakeTenantAdmin) GetTenant(context.Context, int64) (*types.Tenant, error) {
	return &types.Tenant{ID: 1}, nil
}

func (f *fakeTenantAdmin) SetTenantStatus(_ context.Context, _ int64, status types.TenantStatus) error {
	f.statusCalls = append(f.statusCalls, status)
	return nil
}

type fakeProvisionService struct {
	calls int
}

var _ provisioner.ServiceInterface = (*fakeProvisionService)(nil)

func (f *fakeProvisionService) Provision(context.Context, *provisioner.Request) (*provisioner.Report, error) {
	f.calls++
	return &provisioner.Report{Database: "school_1"}, nil
}

type nilResolver struct{}

func (nilResolver) Resolve(context.Context, tenant.RequestContext) (*types.Tenant, error) {
	return nil, nil
}

// fakePlatformClient only needs to carry the per-request transaction.
type fakePlatformClient struct {
	db.DBClientInterface
}

func (fakePlatformClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func newTestRouter(t *testing.T) (http.Handler, *fakeTenantAdmin, *fakeProvisionService) {
	t.Helper()

	tenants := &fakeTenantAdmin{}
	provisions := &fakeProvisionService{}
	sessions := &fakeAuthService{sessions: map[string]*types.Session{
		"admin-token": {
			ID: "sess-1", Token: "admin-token", Scope: auth.ScopePlatform,
			Role: "platform_admin", Permissions: []string{"*"},
		},
		"teacher-token": {
			ID: "sess-2", Token: "teacher-token", Scope: auth.ScopeTenant,
			Role: "teacher", Permissions: []string{"students.read"},
		},
	}}

	router := NewRouter(RouterDeps{
		Platform:      fakePlatformClient{},
		Resolver:      nilResolver{},
		TenantService: tenants,
		AuthService:   sessions,
		Provisioner:   provisions,
	}, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test"), logging.NewNoopLogger())

	return router, tenants, provisions
}

func adminRequest(method, target, body, token string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		r.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	}
	return r
}

func TestRouter_AdminEndpointsRequireManagementPermission(t *testing.T) {
	provisionBody := `{"name":"Greenwood High","slug":"greenwood","owner_id":10,"plan_id":1,` +
		`"admin_email":"head@greenwood.test","admin_name":"Amina Diallo",` +
		`"admin_phone":"+220 555 0101","admin_password":"first-day-of-term"}`

	testCases := []struct {
		name     string
		method   string
		target   string
		body     string
		token    string
		wantCode int
	}{
		{
			name:   "anonymous tenant list rejected",
			method: http.MethodGet, target: "/api/v0/tenants",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:   "anonymous status change rejected",
			method: http.MethodPatch, target: "/api/v0/tenants/1/status",
			body:     `{"status":"suspended"}`,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:   "anonymous provisioning rejected",
			method: http.MethodPost, target: "/api/v0/tenants/provision",
			body:     provisionBody,
			wantCode: http.StatusUnauthorized,
		},
		{
			name:   "session without management permission rejected",
			method: http.MethodPatch, target: "/api/v0/tenants/1/status",
			body:  `{"status":"suspended"}`,
			token: "teacher-token", wantCode: http.StatusForbidden,
		},
		{
			name:   "platform admin changes status",
			method: http.MethodPatch, target: "/api/v0/tenants/1/status",
			body:  `{"status":"suspended"}`,
			token: "admin-token", wantCode: http.StatusNoContent,
		},
		{
			name:   "platform admin provisions",
			method: http.MethodPost, target: "/api/v0/tenants/provision",
			body:  provisionBody,
			token: "admin-token", wantCode: http.StatusCreated,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, tenants, provisions := newTestRouter(t)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, adminRequest(tc.method, tc.target, tc.body, tc.token))

			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode >= 400 {
				assert.Empty(t, tenants.statusCalls)
				assert.Zero(t, provisions.calls)
			}
		})
	}
}

func TestRouter_LoginRouteStaysAnonymous(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// Malformed body, but the request must reach the handler rather than
	// be rejected by the admin guard.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/v0/auth/login", "{", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
