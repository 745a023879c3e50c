// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/edusuite/platform/internal/types"
)

func (s *Storage) GetPlatformAdminByEmail(ctx context.Context, email string) (*types.PlatformAdmin, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetPlatformAdminByEmail")
	defer span.End()

	var a types.PlatformAdmin
	err := s.db.Statement(ctx).
		Select("id", "email", "name", "password_hash", "created_at").
		From("platform_admins").
		Where(sq.Eq{"email": email}).
		QueryRowContext(ctx).
		Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get platform admin: %w", err)
	}

	return &a, nil
}

// UpdatePlatformAdminPassword stores a rehash produced during login when
// the stored hash uses outdated parameters.
func (s *Storage) UpdatePlatformAdminPassword(ctx context.Context, id int64, hash string) error {
	ctx, span := s.tracer.Start(ctx, "storage.UpdatePlatformAdminPassword")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Update("platform_admins").
		Set("password_hash", hash).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update platform admin password: %w", err)
	}
	return nil
}
