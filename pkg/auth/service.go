// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/edusuite/platform/internal/audit"
	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

const (
	ScopeTenant   = "tenant"
	ScopePlatform = "platform"
)

// LoginRequest carries one authentication attempt. Tenant is nil for
// platform-admin logins.
type LoginRequest struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
	Tenant    *types.Tenant
}

type Config struct {
	LockoutThreshold int
	LockoutWindow    time.Duration
	SessionTimeout   time.Duration
	BcryptCost       int
}

// Service is the authentication gateway: login with durable lockout,
// session lifecycle, and logout. It answers unknown identities and wrong
// passwords identically.
type Service struct {
	cfg      Config
	manager  db.ManagerInterface
	storage  storage.StorageInterface
	attempts AttemptStore
	auditor  audit.AuditorInterface
	notifier NotifierInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

var _ ServiceInterface = (*Service)(nil)

func NewService(
	cfg Config,
	manager db.ManagerInterface,
	storage storage.StorageInterface,
	attempts AttemptStore,
	auditor audit.AuditorInterface,
	notifier NotifierInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		cfg:      cfg,
		manager:  manager,
		storage:  storage,
		attempts: attempts,
		auditor:  auditor,
		notifier: notifier,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}

// attemptKey namespaces lockout counters per tenant so the same email
// address never locks across schools. Platform admins use the bare email.
func attemptKey(tenant *types.Tenant, email string) string {
	if tenant == nil {
		return email
	}
	return fmt.Sprintf("%d_%s", tenant.ID, email)
}

// Login authenticates an identity within the given scope. The lockout
// check runs before any credential work so a locked identity learns
// nothing about whether its password was right.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*types.Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Service.Login")
	defer span.End()

	if req.Email == "" || req.Password == "" {
		return nil, types.ErrInvalidCredentials
	}

	key := attemptKey(req.Tenant, req.Email)

	if remaining, locked, err := s.lockedOut(ctx, key); err != nil {
		s.logger.Errorf("failed to check lockout for %s: %v", key, err)
		return nil, types.ErrTryAgain
	} else if locked {
		s.logger.Security().Lockout(key, remaining)
		return nil, &types.LockedOutError{Remaining: remaining}
	}

	var sess *types.Session
	var err error
	if req.Tenant != nil {
		sess, err = s.loginTenantUser(ctx, req)
	} else {
		sess, err = s.loginPlatformAdmin(ctx, req)
	}

	if errors.Is(err, types.ErrInvalidCredentials) {
		s.recordFailure(ctx, key, req.IP)
		return nil, types.ErrInvalidCredentials
	}
	if err != nil {
		s.logger.Errorf("login failed for %s: %v", key, err)
		return nil, types.ErrTryAgain
	}

	if err := s.attempts.Clear(ctx, key); err != nil {
		s.logger.Warnf("failed to clear login attempts for %s: %v", key, err)
	}

	if err := s.storage.CreateSession(ctx, sess); err != nil {
		s.logger.Errorf("failed to persist session for %s: %v", key, err)
		return nil, types.ErrTryAgain
	}

	s.logger.Security().LoginSuccess(req.Email, sess.Role, req.IP)
	s.auditor.Record(ctx, &types.AuditEvent{
		ActorID:   sess.UserID,
		ActorRole: sess.Role,
		TenantID:  sess.TenantID,
		Event:     "login",
		IP:        req.IP,
		UserAgent: req.UserAgent,
	})

	return sess, nil
}

func (s *Service) lockedOut(ctx context.Context, key string) (time.Duration, bool, error) {
	a, err := s.attempts.Get(ctx, key)
	if err != nil {
		return 0, false, err
	}
	if a == nil || a.Count < s.cfg.LockoutThreshold {
		return 0, false, nil
	}
	elapsed := time.Since(a.LastAttempt)
	if elapsed >= s.cfg.LockoutWindow {
		return 0, false, nil
	}
	return s.cfg.LockoutWindow - elapsed, true, nil
}

func (s *Service) recordFailure(ctx context.Context, key, ip string) {
	count, err := s.attempts.Bump(ctx, key, time.Now())
	if err != nil {
		s.logger.Errorf("failed to record login failure for %s: %v", key, err)
		return
	}
	s.logger.Security().LoginFailure(key, ip, "invalid credentials")
	if count >= s.cfg.LockoutThreshold {
		s.logger.Security().Lockout(key, s.cfg.LockoutWindow)
	}
}

func (s *Service) loginTenantUser(ctx context.Context, req *LoginRequest) (*types.Session, error) {
	conn, err := s.manager.Tenant(ctx, req.Tenant.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tenant database: %w", err)
	}

	var u types.TenantUser
	err = conn.Statement(ctx).
		Select("id", "email", "name", "role", "password_hash").
		From("users").
		Where(sq.Eq{"email": req.Email, "active": true}).
		QueryRowContext(ctx).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := checkHash(u.PasswordHash, req.Password); err != nil {
		if errors.Is(err, errNotBcrypt) {
			s.logger.Errorf("unreadable password hash for user %d in %s", u.ID, req.Tenant.Database)
		}
		return nil, types.ErrInvalidCredentials
	}

	s.maybeRehashTenant(ctx, conn, u.ID, u.PasswordHash, req.Password)

	perms, err := s.rolePermissions(ctx, conn, u.Role)
	if err != nil {
		return nil, err
	}

	return s.newSession(req.Tenant.ID, u.ID, ScopeTenant, u.Role, perms)
}

func (s *Service) loginPlatformAdmin(ctx context.Context, req *LoginRequest) (*types.Session, error) {
	admin, err := s.storage.GetPlatformAdminByEmail(ctx, req.Email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up platform admin: %w", err)
	}

	if err := checkHash(admin.PasswordHash, req.Password); err != nil {
		return nil, types.ErrInvalidCredentials
	}

	if needsRehash(admin.PasswordHash, s.cfg.BcryptCost) {
		if hash, err := HashPassword(req.Password, s.cfg.BcryptCost); err == nil {
			if err := s.storage.UpdatePlatformAdminPassword(ctx, admin.ID, hash); err != nil {
				s.logger.Warnf("failed to upgrade password hash for admin %d: %v", admin.ID, err)
			}
		}
	}

	return s.newSession(0, admin.ID, ScopePlatform, "platform_admin", []string{"*"})
}

// maybeRehashTenant upgrades a verified password stored with a weaker
// cost. Failure to upgrade never fails the login.
func (s *Service) maybeRehashTenant(ctx context.Context, conn db.DBClientInterface, userID int64, hash, password string) {
	if !needsRehash(hash, s.cfg.BcryptCost) {
		return
	}
	newHash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return
	}
	_, err = conn.Statement(ctx).
		Update("users").
		Set("password_hash", newHash).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": userID}).
		ExecContext(ctx)
	if err != nil {
		s.logger.Warnf("failed to upgrade password hash for user %d: %v", userID, err)
	}
}

func (s *Service) rolePermissions(ctx context.Context, conn db.DBClientInterface, role string) ([]string, error) {
	rows, err := conn.Statement(ctx).
		Select("rp.permission").
		From("role_permissions rp").
		Join("roles r ON r.id = rp.role_id").
		Where(sq.Eq{"r.name": role}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	defer rows.Close()

	var perms []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read permissions: %w", err)
	}
	return perms, nil
}

func (s *Service) newSession(tenantID, userID int64, scope, role string, perms []string) (*types.Session, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	csrf, err := randomToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &types.Session{
		ID:           uuid.NewString(),
		Token:        token,
		TenantID:     tenantID,
		UserID:       userID,
		Scope:        scope,
		Role:         role,
		Permissions:  perms,
		CSRFToken:    csrf,
		CreatedAt:    now,
		LastActivity: now,
	}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsLoggedIn resolves a session token. An idle session past the timeout
// is destroyed on sight and reported as not logged in; a live one has its
// activity timestamp advanced. A non-empty scope restricts the result to
// sessions of that scope; roles, when given, restrict it further.
func (s *Service) IsLoggedIn(ctx context.Context, token, scope string, roles ...string) (*types.Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Service.IsLoggedIn")
	defer span.End()

	if token == "" {
		return nil, nil
	}

	sess, err := s.storage.GetSessionByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := time.Now()
	if now.Sub(sess.LastActivity) > s.cfg.SessionTimeout {
		if err := s.storage.DeleteSessionByToken(ctx, token); err != nil {
			s.logger.Warnf("failed to delete expired session: %v", err)
		}
		s.logger.Security().SessionDestroyed("timeout")
		return nil, nil
	}

	if scope != "" && sess.Scope != scope {
		return nil, nil
	}
	if len(roles) > 0 && !slices.Contains(roles, sess.Role) {
		return nil, nil
	}

	if err := s.storage.TouchSession(ctx, sess.ID, now); err != nil {
		s.logger.Warnf("failed to touch session: %v", err)
	}
	sess.LastActivity = now

	return sess, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "auth.Service.Logout")
	defer span.End()

	if token == "" {
		return nil
	}
	if err := s.storage.DeleteSessionByToken(ctx, token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.logger.Security().SessionDestroyed("logout")
	return nil
}

// RequestPasswordReset issues a reset token for a tenant user. The caller
// always receives the same answer whether or not the address exists.
func (s *Service) RequestPasswordReset(ctx context.Context, tenant *types.Tenant, email string) error {
	ctx, span := s.tracer.Start(ctx, "auth.Service.RequestPasswordReset")
	defer span.End()

	if tenant == nil {
		return nil
	}

	conn, err := s.manager.Tenant(ctx, tenant.Database)
	if err != nil {
		s.logger.Errorf("failed to reach tenant database for reset: %v", err)
		return nil
	}

	var userID int64
	err = conn.Statement(ctx).
		Select("id").
		From("users").
		Where(sq.Eq{"email": email, "active": true}).
		QueryRowContext(ctx).
		Scan(&userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Errorf("failed to look up user for reset: %v", err)
		}
		return nil
	}

	token, err := randomToken()
	if err != nil {
		return nil
	}
	_, err = conn.Statement(ctx).
		Insert("password_resets").
		Columns("user_id", "token", "expires_at").
		Values(userID, token, time.Now().Add(2*time.Hour)).
		ExecContext(ctx)
	if err != nil {
		s.logger.Errorf("failed to store reset token: %v", err)
		return nil
	}

	if s.notifier != nil {
		if err := s.notifier.PasswordReset(ctx, email, token, tenant.Name); err != nil {
			s.logger.Warnf("failed to hand off reset token: %v", err)
		}
	}

	s.logger.Infof("password reset issued for user %d in %s", userID, tenant.Database)
	return nil
}

// CleanupExpiredSessions removes sessions idle past the timeout. Run
// periodically from the server process.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Service.CleanupExpiredSessions")
	defer span.End()

	cutoff := time.Now().Add(-s.cfg.SessionTimeout)
	n, err := s.storage.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.Debugf("removed %d expired sessions", n)
	}
	return n, nil
}
