// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

// Package audit records security-relevant events in the platform
// database. Recording is best effort: a failed audit write is logged and
// never fails the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

type AuditorInterface interface {
	Record(ctx context.Context, e *types.AuditEvent)
}

type Auditor struct {
	storage storage.StorageInterface

	tracer tracing.TracingInterface
	logger logging.LoggerInterface
}

var _ AuditorInterface = (*Auditor)(nil)

func NewAuditor(
	storage storage.StorageInterface,
	tracer tracing.TracingInterface,
	logger logging.LoggerInterface,
) *Auditor {
	return &Auditor{storage: storage, tracer: tracer, logger: logger}
}

func (a *Auditor) Record(ctx context.Context, e *types.AuditEvent) {
	ctx, span := a.tracer.Start(ctx, "audit.Auditor.Record")
	defer span.End()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if err := a.storage.RecordAuditEvent(ctx, e); err != nil {
		a.logger.Warnf("failed to record audit event %q: %v", e.Event, err)
	}
}

// NoopAuditor drops events. Used in tests and tools that have no
// platform database.
type NoopAuditor struct{}

var _ AuditorInterface = (*NoopAuditor)(nil)

func (NoopAuditor) Record(context.Context, *types.AuditEvent) {}
