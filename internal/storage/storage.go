// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

var _ StorageInterface = (*Storage)(nil)

// Storage is the platform-database persistence layer: tenant registry,
// sessions, lockout counters, platform admins and the audit log.
type Storage struct {
	db db.DBClientInterface

	logger  logging.LoggerInterface
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
}

func NewStorage(c db.DBClientInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Storage {
	s := new(Storage)

	s.db = c

	s.logger = logger
	s.tracer = tracer
	s.monitor = monitor

	return s
}

const tenantColumns = "id, name, slug, status, database_name, plan_id, owner_id, created_at, updated_at"

func scanTenant(row sq.RowScanner) (*types.Tenant, error) {
	var t types.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.Database, &t.PlanID, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	return &t, nil
}

// GetTenantBySlug returns the tenant for a slug, restricted to statuses
// that may log in. Suspended, cancelled and expired tenants resolve to
// ErrNotFound.
func (s *Storage) GetTenantBySlug(ctx context.Context, slug string) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetTenantBySlug")
	defer span.End()

	row := s.db.Statement(ctx).
		Select(tenantColumns).
		From("tenants").
		Where(sq.Eq{"slug": slug}).
		Where(sq.Eq{"status": []types.TenantStatus{types.TenantActive, types.TenantTrial}}).
		QueryRowContext(ctx)

	return scanTenant(row)
}

// GetTenantByID mirrors GetTenantBySlug for id lookups (session strategy).
func (s *Storage) GetTenantByID(ctx context.Context, id int64) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetTenantByID")
	defer span.End()

	row := s.db.Statement(ctx).
		Select(tenantColumns).
		From("tenants").
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"status": []types.TenantStatus{types.TenantActive, types.TenantTrial}}).
		QueryRowContext(ctx)

	return scanTenant(row)
}

func (s *Storage) CreateTenant(ctx context.Context, t *types.Tenant) (*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateTenant")
	defer span.End()

	var created types.Tenant
	err := s.db.Statement(ctx).
		Insert("tenants").
		Columns("name", "slug", "status", "database_name", "plan_id", "owner_id").
		Values(t.Name, t.Slug, t.Status, t.Database, t.PlanID, t.OwnerID).
		Suffix("RETURNING " + tenantColumns).
		QueryRowContext(ctx).
		Scan(&created.ID, &created.Name, &created.Slug, &created.Status, &created.Database, &created.PlanID, &created.OwnerID, &created.CreatedAt, &created.UpdatedAt)

	if err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to insert tenant: %w", err)
	}

	return &created, nil
}

// SetTenantDatabase records the derived database name once the tenant id
// is known.
func (s *Storage) SetTenantDatabase(ctx context.Context, id int64, database string) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetTenantDatabase")
	defer span.End()

	_, err := s.db.Statement(ctx).
		Update("tenants").
		Set("database_name", database).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to set tenant database: %w", err)
	}
	return nil
}

func (s *Storage) SetTenantStatus(ctx context.Context, id int64, status types.TenantStatus) error {
	ctx, span := s.tracer.Start(ctx, "storage.SetTenantStatus")
	defer span.End()

	if !status.IsValid() {
		return &types.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	res, err := s.db.Statement(ctx).
		Update("tenants").
		Set("status", status).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *Storage) ListTenants(ctx context.Context) ([]*types.Tenant, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListTenants")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select(tenantColumns).
		From("tenants").
		OrderBy("id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*types.Tenant
	for rows.Next() {
		var t types.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.Database, &t.PlanID, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant rows: %w", err)
	}

	return tenants, nil
}

// CountTenantsByOwner counts non-cancelled tenants for plan-limit checks.
func (s *Storage) CountTenantsByOwner(ctx context.Context, ownerID int64) (int, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CountTenantsByOwner")
	defer span.End()

	var count int
	err := s.db.Statement(ctx).
		Select("COUNT(*)").
		From("tenants").
		Where(sq.Eq{"owner_id": ownerID}).
		Where(sq.NotEq{"status": types.TenantCancelled}).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tenants: %w", err)
	}

	return count, nil
}

func (s *Storage) GetPlan(ctx context.Context, id int64) (*types.Plan, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetPlan")
	defer span.End()

	var p types.Plan
	err := s.db.Statement(ctx).
		Select("id", "name", "max_tenants", "max_users").
		From("plans").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&p.ID, &p.Name, &p.MaxTenants, &p.MaxUsers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return &p, nil
}
