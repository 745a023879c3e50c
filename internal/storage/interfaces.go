// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"time"

	"github.com/edusuite/platform/internal/types"
)

type StorageInterface interface {
	GetTenantBySlug(ctx context.Context, slug string) (*types.Tenant, error)
	GetTenantByID(ctx context.Context, id int64) (*types.Tenant, error)
	CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error)
	SetTenantDatabase(ctx context.Context, id int64, database string) error
	SetTenantStatus(ctx context.Context, id int64, status types.TenantStatus) error
	ListTenants(ctx context.Context) ([]*types.Tenant, error)
	CountTenantsByOwner(ctx context.Context, ownerID int64) (int, error)
	GetPlan(ctx context.Context, id int64) (*types.Plan, error)

	CreateSession(ctx context.Context, sess *types.Session) error
	GetSessionByToken(ctx context.Context, token string) (*types.Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSessionByToken(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)

	BumpLoginAttempt(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)
	GetLoginAttempt(ctx context.Context, key string) (*types.LoginAttempt, error)
	ClearLoginAttempts(ctx context.Context, key string) error

	GetPlatformAdminByEmail(ctx context.Context, email string) (*types.PlatformAdmin, error)
	UpdatePlatformAdminPassword(ctx context.Context, id int64, hash string) error

	RecordAuditEvent(ctx context.Context, e *types.AuditEvent) error
}
