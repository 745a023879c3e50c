// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"

	"github.com/edusuite/platform/internal/types"
)

type contextKey struct{}

var tenantContextKey = contextKey{}

// resolution marks that a resolution pass already ran for this request,
// even when it yielded no tenant.
type resolution struct {
	tenant *types.Tenant
}

// WithTenant returns a context carrying the outcome of one resolution
// pass. A nil tenant records a platform-scoped request.
func WithTenant(ctx context.Context, t *types.Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey, &resolution{tenant: t})
}

// FromContext returns the resolved tenant. The second return is true when
// a resolution pass ran, regardless of whether it found a tenant.
func FromContext(ctx context.Context) (*types.Tenant, bool) {
	res, ok := ctx.Value(tenantContextKey).(*resolution)
	if !ok {
		return nil, false
	}
	return res.tenant, true
}
