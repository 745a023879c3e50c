// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/types"
)

func TestMiddleware_RequireCSRF(t *testing.T) {
	sess := &types.Session{
		Token:     "tok",
		CSRFToken: "csrf-abc",
		CreatedAt: time.Now(),
	}
	stale := &types.Session{
		Token:     "tok",
		CSRFToken: "csrf-abc",
		CreatedAt: time.Now().Add(-3 * time.Hour),
	}

	testCases := []struct {
		name     string
		session  *types.Session
		header   string
		wantCode int
	}{
		{
			name:     "matching token passes",
			session:  sess,
			header:   "csrf-abc",
			wantCode: http.StatusNoContent,
		},
		{
			name:     "missing token rejected",
			session:  sess,
			header:   "",
			wantCode: http.StatusForbidden,
		},
		{
			name:     "wrong token rejected",
			session:  sess,
			header:   "csrf-xyz",
			wantCode: http.StatusForbidden,
		},
		{
			name:     "token past lifetime rejected",
			session:  stale,
			header:   "csrf-abc",
			wantCode: http.StatusForbidden,
		},
		{
			name:     "anonymous request passes through",
			session:  nil,
			header:   "csrf-abc",
			wantCode: http.StatusNoContent,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMiddleware(nil, logging.NewNoopLogger())
			handler := m.RequireCSRF(2 * time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v0/auth/logout", nil)
			if tc.session != nil {
				req = req.WithContext(WithSession(req.Context(), tc.session))
			}
			if tc.header != "" {
				req.Header.Set(CSRFHeader, tc.header)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.wantCode, rec.Code)
		})
	}
}
