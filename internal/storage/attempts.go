// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/edusuite/platform/internal/types"
)

// Login-attempt counters live in the platform database so that lockout
// state is visible to every request-handling instance. The upsert is
// atomic: a counter whose last attempt predates the window cutoff resets
// to 1 instead of incrementing.

func (s *Storage) BumpLoginAttempt(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	ctx, span := s.tracer.Start(ctx, "storage.BumpLoginAttempt")
	defer span.End()

	cutoff := now.Add(-window)

	var count int
	err := s.db.Statement(ctx).
		Insert("login_attempts").
		Columns("identity_key", "attempt_count", "last_attempt").
		Values(key, 1, now).
		Suffix(`ON CONFLICT (identity_key) DO UPDATE SET
			attempt_count = CASE WHEN login_attempts.last_attempt < ? THEN 1 ELSE login_attempts.attempt_count + 1 END,
			last_attempt = EXCLUDED.last_attempt
			RETURNING attempt_count`, cutoff).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to bump login attempt: %w", err)
	}

	return count, nil
}

func (s *Storage) GetLoginAttempt(ctx context.Context, key string) (*types.LoginAttempt, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetLoginAttempt")
	defer span.End()

	var a types.LoginAttempt
	err := s.db.Statement(ctx).
		Select("identity_key", "attempt_count", "last_attempt").
		From("login_attempts").
		Where(sq.Eq{"identity_key": key}).
		QueryRowContext(ctx).
		Scan(&a.Key, &a.Count, &a.LastAttempt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get login attempt: %w", err)
	}

	return &a, nil
}

func (s *Storage) ClearLoginAttempts(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "storage.ClearLoginAttempts")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Delete("login_attempts").
		Where(sq.Eq{"identity_key": key}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}
