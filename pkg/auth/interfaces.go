// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"

	"github.com/edusuite/platform/internal/types"
)

type ServiceInterface interface {
	Login(ctx context.Context, req *LoginRequest) (*types.Session, error)
	IsLoggedIn(ctx context.Context, token, scope string, roles ...string) (*types.Session, error)
	Logout(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, tenant *types.Tenant, email string) error
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}
