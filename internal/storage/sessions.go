// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/edusuite/platform/internal/types"
)

// Sessions are durable so that token validation holds across process
// restarts and across horizontally scaled instances. Permissions are
// stored as a JSON array.

func (s *Storage) CreateSession(ctx context.Context, sess *types.Session) error {
	ctx, span := s.tracer.Start(ctx, "storage.CreateSession")
	defer span.End()

	perms, err := json.Marshal(sess.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	_, err = s.db.Statement(ctx).
		Insert("sessions").
		Columns("id", "token", "tenant_id", "user_id", "scope", "role", "permissions", "csrf_token", "created_at", "last_activity").
		Values(sess.ID, sess.Token, sess.TenantID, sess.UserID, sess.Scope, sess.Role, string(perms), sess.CSRFToken, sess.CreatedAt, sess.LastActivity).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

func (s *Storage) GetSessionByToken(ctx context.Context, token string) (*types.Session, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetSessionByToken")
	defer span.End()

	var sess types.Session
	var perms string
	err := s.db.Statement(ctx).
		Select("id", "token", "tenant_id", "user_id", "scope", "role", "permissions", "csrf_token", "created_at", "last_activity").
		From("sessions").
		Where(sq.Eq{"token": token}).
		QueryRowContext(ctx).
		Scan(&sess.ID, &sess.Token, &sess.TenantID, &sess.UserID, &sess.Scope, &sess.Role, &perms, &sess.CSRFToken, &sess.CreatedAt, &sess.LastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal([]byte(perms), &sess.Permissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}

	return &sess, nil
}

// TouchSession refreshes last_activity for a still-valid session.
func (s *Storage) TouchSession(ctx context.Context, id string, at time.Time) error {
	ctx, span := s.tracer.Start(ctx, "storage.TouchSession")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Update("sessions").
		Set("last_activity", at).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (s *Storage) DeleteSessionByToken(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteSessionByToken")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Delete("sessions").
		Where(sq.Eq{"token": token}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions idle past the cutoff. Run
// periodically by the server, not on the request path.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "storage.DeleteExpiredSessions")
	defer span.End()

	res, err := s.db.Statement(ctx).
		Delete("sessions").
		Where(sq.Lt{"last_activity": cutoff}).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows, nil
}
