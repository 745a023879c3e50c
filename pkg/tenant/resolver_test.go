// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

type fakeRegistry struct {
	bySlug    map[string]*types.Tenant
	byID      map[int64]*types.Tenant
	slugCalls int
	idCalls   int
	err       error
}

func (f *fakeRegistry) GetTenantBySlug(_ context.Context, slug string) (*types.Tenant, error) {
	f.slugCalls++
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.bySlug[slug]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeRegistry) GetTenantByID(_ context.Context, id int64) (*types.Tenant, error) {
	f.idCalls++
	if f.err != nil {
		return nil, f.err
	}
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func newTestResolver(reg RegistryInterface) *Resolver {
	return NewResolver(
		reg,
		"/s",
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)
}

func TestResolver_Resolve(t *testing.T) {
	greenwood := &types.Tenant{ID: 1, Slug: "greenwood", Status: types.TenantActive}
	hillside := &types.Tenant{ID: 2, Slug: "hillside", Status: types.TenantTrial}

	registry := func() *fakeRegistry {
		return &fakeRegistry{
			bySlug: map[string]*types.Tenant{"greenwood": greenwood, "hillside": hillside},
			byID:   map[int64]*types.Tenant{1: greenwood, 2: hillside},
		}
	}

	testCases := []struct {
		name     string
		rc       RequestContext
		expected *types.Tenant
	}{
		{
			name:     "subdomain",
			rc:       RequestContext{Host: "greenwood.platform.example.com", Path: "/dashboard"},
			expected: greenwood,
		},
		{
			name:     "subdomain with port",
			rc:       RequestContext{Host: "greenwood.platform.example.com:8443", Path: "/"},
			expected: greenwood,
		},
		{
			name:     "subdomain beats path",
			rc:       RequestContext{Host: "greenwood.platform.example.com", Path: "/s/hillside/home"},
			expected: greenwood,
		},
		{
			name:     "path",
			rc:       RequestContext{Host: "platform.example.com", Path: "/s/hillside/home"},
			expected: hillside,
		},
		{
			name: "path beats session",
			rc: RequestContext{
				Host:    "platform.example.com",
				Path:    "/s/hillside",
				Session: &types.Session{TenantID: 1},
			},
			expected: hillside,
		},
		{
			name: "session fallback",
			rc: RequestContext{
				Host:    "platform.example.com",
				Path:    "/dashboard",
				Session: &types.Session{TenantID: 1},
			},
			expected: greenwood,
		},
		{
			name:     "reserved label falls through to path",
			rc:       RequestContext{Host: "www.platform.example.com", Path: "/s/greenwood"},
			expected: greenwood,
		},
		{
			name:     "unknown subdomain falls through to path",
			rc:       RequestContext{Host: "nosuch.platform.example.com", Path: "/s/greenwood"},
			expected: greenwood,
		},
		{
			name:     "two-label host has no subdomain slug",
			rc:       RequestContext{Host: "example.com", Path: "/s/greenwood"},
			expected: greenwood,
		},
		{
			name:     "platform scoped",
			rc:       RequestContext{Host: "platform.example.com", Path: "/login"},
			expected: nil,
		},
		{
			name:     "unknown everywhere",
			rc:       RequestContext{Host: "nosuch.platform.example.com", Path: "/s/missing"},
			expected: nil,
		},
		{
			name: "session tenant gone",
			rc: RequestContext{
				Host:    "platform.example.com",
				Path:    "/",
				Session: &types.Session{TenantID: 99},
			},
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestResolver(registry())
			got, err := r.Resolve(context.Background(), tc.rc)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestResolver_SlugCache(t *testing.T) {
	greenwood := &types.Tenant{ID: 1, Slug: "greenwood", Status: types.TenantActive}
	reg := &fakeRegistry{bySlug: map[string]*types.Tenant{"greenwood": greenwood}}
	r := newTestResolver(reg)

	rc := RequestContext{Host: "greenwood.platform.example.com", Path: "/"}
	for i := 0; i < 3; i++ {
		got, err := r.Resolve(context.Background(), rc)
		require.NoError(t, err)
		assert.Equal(t, greenwood, got)
	}

	assert.Equal(t, 1, reg.slugCalls)
}

func TestResolver_MissesAreNotCached(t *testing.T) {
	reg := &fakeRegistry{bySlug: map[string]*types.Tenant{}}
	r := newTestResolver(reg)

	rc := RequestContext{Host: "newschool.platform.example.com", Path: "/"}
	for i := 0; i < 2; i++ {
		got, err := r.Resolve(context.Background(), rc)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	assert.Equal(t, 2, reg.slugCalls)
}

func TestResolver_RegistryError(t *testing.T) {
	reg := &fakeRegistry{err: errors.New("connection refused")}
	r := newTestResolver(reg)

	_, err := r.Resolve(context.Background(), RequestContext{Host: "greenwood.platform.example.com", Path: "/"})
	assert.Error(t, err)
}
