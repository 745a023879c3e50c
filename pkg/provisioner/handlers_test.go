// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

func newHandlerTest(t *testing.T) (*chi.Mux, *MockServiceInterface) {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := NewMockServiceInterface(ctrl)

	mux := chi.NewMux()
	NewAPI(service, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test"), logging.NewNoopLogger()).RegisterEndpoints(mux)
	return mux, service
}

func provisionBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(validRequest())
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestAPI_Provision(t *testing.T) {
	mux, service := newHandlerTest(t)

	service.EXPECT().Provision(gomock.Any(), gomock.Any()).Return(&Report{
		Database:        "school_42",
		TablesAttempted: TableCount(),
		TablesCreated:   TableCount(),
		AdminUserID:     7,
	}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v0/tenants/provision", provisionBody(t)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "school_42", report.Database)
	assert.Equal(t, int64(7), report.AdminUserID)
}

func TestAPI_ProvisionErrorMapping(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "validation", err: &types.ValidationError{Field: "slug", Reason: "taken"}, expected: http.StatusBadRequest},
		{name: "plan limit", err: &types.LimitExceededError{Limit: "school", Allowed: 1}, expected: http.StatusForbidden},
		{name: "provisioning", err: &types.ProvisioningError{Stage: "admin user", Err: errors.New("boom")}, expected: http.StatusInternalServerError},
		{name: "unexpected", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux, service := newHandlerTest(t)
			service.EXPECT().Provision(gomock.Any(), gomock.Any()).Return(nil, tc.err)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v0/tenants/provision", provisionBody(t)))
			assert.Equal(t, tc.expected, rec.Code)
		})
	}
}

func TestAPI_ProvisionRejectsBadBody(t *testing.T) {
	mux, _ := newHandlerTest(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v0/tenants/provision", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestService_ProvisionNotifiesAdmin(t *testing.T) {
	mockDB, mock := newSchemaMock(t)

	mock.ExpectExec(`SET session_replication_role = replica`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, step := range Catalog() {
		mock.ExpectExec(step.SQL).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`SET session_replication_role = origin`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO users (email, name, phone, role, password_hash) VALUES ($1, $2, $3, 'admin', $4) RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	ctrl := gomock.NewController(t)
	notifier := NewMockNotifierInterface(ctrl)
	// A failed credential hand-off never fails the run.
	notifier.EXPECT().
		AdminCredentials(gomock.Any(), "head@greenwood.test", "Greenwood High", gomock.Any()).
		Return(errors.New("smtp unreachable"))

	manager := &fakeManager{conn: &fakeConn{db: mockDB, name: "school_42"}, prefix: "school_"}
	s := &fakeProvisionStorage{plan: &types.Plan{ID: 1, MaxTenants: 3}}
	svc := newTestProvisioner(manager, s)
	svc.notifier = notifier

	report, err := svc.Provision(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.AdminUserID)
}
