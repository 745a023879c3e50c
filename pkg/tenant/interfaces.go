// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenant

import (
	"context"

	"github.com/edusuite/platform/internal/types"
)

type ServiceInterface interface {
	ListTenants(ctx context.Context) ([]*types.Tenant, error)
	GetTenant(ctx context.Context, id int64) (*types.Tenant, error)
	SetTenantStatus(ctx context.Context, id int64, status types.TenantStatus) error
}

// RegistryInterface is the slice of platform storage the resolver needs.
type RegistryInterface interface {
	GetTenantBySlug(ctx context.Context, slug string) (*types.Tenant, error)
	GetTenantByID(ctx context.Context, id int64) (*types.Tenant, error)
}

type ResolverInterface interface {
	Resolve(ctx context.Context, rc RequestContext) (*types.Tenant, error)
}
