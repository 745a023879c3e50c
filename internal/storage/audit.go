// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"

	"github.com/edusuite/platform/internal/types"
)

// RecordAuditEvent appends one event to the audit log. Callers decide
// whether a failure here is fatal; for login audits it never is.
func (s *Storage) RecordAuditEvent(ctx context.Context, e *types.AuditEvent) error {
	ctx, span := s.tracer.Start(ctx, "storage.RecordAuditEvent")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Insert("audit_log").
		Columns("actor_id", "actor_role", "tenant_id", "event", "description", "ip", "user_agent").
		Values(e.ActorID, e.ActorRole, e.TenantID, e.Event, e.Description, e.IP, e.UserAgent).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}
