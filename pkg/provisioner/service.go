// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// minPasswordFloor matches the struct tag below; configuration can raise
// the minimum but never lower it.
const minPasswordFloor = 8

// Request is the input for provisioning a new school tenant.
type Request struct {
	Name          string `json:"name" validate:"required,min=2,max=120"`
	Slug          string `json:"slug" validate:"required"`
	OwnerID       int64  `json:"owner_id" validate:"required"`
	PlanID        int64  `json:"plan_id" validate:"required"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminName     string `json:"admin_name" validate:"required"`
	AdminPhone    string `json:"admin_phone" validate:"required"`
	AdminPassword string `json:"admin_password" validate:"required,min=8"`
}

// schemaRunner is the slice of a database connection the schema builder
// needs. *sql.Conn satisfies it, as does *sql.DB in tests.
type schemaRunner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Service provisions tenant databases: registry row, physical database,
// full school schema, and the initial admin user.
type Service struct {
	manager     db.ManagerInterface
	storage     storage.StorageInterface
	notifier    NotifierInterface
	validate    *validator.Validate
	bcryptCost  int
	minPassword int

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

var _ ServiceInterface = (*Service)(nil)

func NewService(
	manager db.ManagerInterface,
	storage storage.StorageInterface,
	notifier NotifierInterface,
	bcryptCost int,
	minPassword int,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if minPassword < minPasswordFloor {
		minPassword = minPasswordFloor
	}
	return &Service{
		manager:     manager,
		storage:     storage,
		notifier:    notifier,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		bcryptCost:  bcryptCost,
		minPassword: minPassword,
		tracer:      tracer,
		monitor:     monitor,
		logger:      logger,
	}
}

// Provision runs the full provisioning pipeline. Input validation and the
// plan limit check fail fast; schema steps are tolerant of individual
// failures; the admin user is strict, because a tenant without its admin
// is unusable.
func (s *Service) Provision(ctx context.Context, req *Request) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "provisioner.Service.Provision")
	defer span.End()

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	plan, err := s.storage.GetPlan(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &types.ValidationError{Field: "plan_id", Reason: "unknown plan"}
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}

	owned, err := s.storage.CountTenantsByOwner(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count owned tenants: %w", err)
	}
	if owned >= plan.MaxTenants {
		return nil, &types.LimitExceededError{Limit: "school", Allowed: plan.MaxTenants}
	}

	t, err := s.storage.CreateTenant(ctx, &types.Tenant{
		Name:    req.Name,
		Slug:    req.Slug,
		Status:  types.TenantTrial,
		PlanID:  req.PlanID,
		OwnerID: req.OwnerID,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, &types.ValidationError{Field: "slug", Reason: "already taken"}
		}
		return nil, fmt.Errorf("failed to create tenant record: %w", err)
	}

	database := s.manager.TenantDatabaseName(t.ID)
	if err := s.storage.SetTenantDatabase(ctx, t.ID, database); err != nil {
		return nil, fmt.Errorf("failed to record tenant database: %w", err)
	}

	if err := s.manager.CreateTenantDatabase(ctx, database); err != nil {
		return nil, &types.ProvisioningError{Stage: "create database", Err: err}
	}

	client, err := s.manager.Tenant(ctx, database)
	if err != nil {
		return nil, &types.ProvisioningError{Stage: "connect", Err: err}
	}

	// The schema build toggles session_replication_role, a per-session
	// setting. Pin one connection for the whole build so the toggle and
	// its restore land on the same session, and close it afterwards so a
	// relaxed session can never return to the pool.
	conn, err := client.Conn(ctx)
	if err != nil {
		return nil, &types.ProvisioningError{Stage: "connect", Err: err}
	}
	defer conn.Close()

	report := &Report{Database: database}
	s.buildSchema(ctx, conn, report)
	for _, name := range report.Failed {
		s.logger.Warnf("schema step %q failed for %s", name, database)
	}

	adminID, err := s.createAdminUser(ctx, conn, req)
	if err != nil {
		return nil, &types.ProvisioningError{Stage: "admin user", Err: err}
	}
	report.AdminUserID = adminID

	if s.notifier != nil {
		if err := s.notifier.AdminCredentials(ctx, req.AdminEmail, req.Name, loginURL(req.Slug)); err != nil {
			s.logger.Warnf("failed to send admin credentials for %s: %v", req.Slug, err)
		}
	}

	s.logger.Security().TenantProvisioned(req.Slug, database)
	s.logger.Infof("provisioned tenant %s: %d/%d tables created", req.Slug, report.TablesCreated, report.TablesAttempted)

	return report, nil
}

func (s *Service) validateRequest(req *Request) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &types.ValidationError{Field: verrs[0].Field(), Reason: "failed " + verrs[0].Tag() + " check"}
		}
		return &types.ValidationError{Field: "request", Reason: err.Error()}
	}
	if !slugPattern.MatchString(req.Slug) {
		return &types.ValidationError{Field: "slug", Reason: "must be lowercase letters, digits and hyphens"}
	}
	if len(req.AdminPassword) < s.minPassword {
		return &types.ValidationError{Field: "admin_password", Reason: fmt.Sprintf("must be at least %d characters", s.minPassword)}
	}
	return nil
}

// buildSchema runs the catalog against a fresh tenant database.
// Referential-integrity triggers are turned off for the session so default
// rows can land regardless of insert order, and restored before returning.
func (s *Service) buildSchema(ctx context.Context, conn schemaRunner, report *Report) {
	relaxed := false
	if _, err := conn.ExecContext(ctx, `SET session_replication_role = replica`); err != nil {
		s.logger.Warnf("could not relax referential checks: %v", err)
	} else {
		relaxed = true
	}
	defer func() {
		if !relaxed {
			return
		}
		if _, err := conn.ExecContext(ctx, `SET session_replication_role = origin`); err != nil {
			s.logger.Errorf("could not restore referential checks: %v", err)
		}
	}()

	for _, step := range Catalog() {
		_, err := conn.ExecContext(ctx, step.SQL)
		report.record(step, err)
	}
}

func (s *Service) createAdminUser(ctx context.Context, conn schemaRunner, req *Request) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), s.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash admin password: %w", err)
	}

	var id int64
	err = conn.QueryRowContext(ctx,
		`INSERT INTO users (email, name, phone, role, password_hash) VALUES ($1, $2, $3, 'admin', $4) RETURNING id`,
		req.AdminEmail, req.AdminName, req.AdminPhone, string(hash),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create admin user: %w", err)
	}

	return id, nil
}

func loginURL(slug string) string {
	return fmt.Sprintf("https://%s.edusuite.example/login", slug)
}
