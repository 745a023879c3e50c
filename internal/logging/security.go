// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"time"

	"go.uber.org/zap"
)

// SecurityLogger emits the audit-relevant lifecycle and authentication
// events on a dedicated named logger so they can be routed separately.
type SecurityLogger struct {
	l *zap.Logger
}

func (s *SecurityLogger) SystemStartup() {
	s.l.Info("system startup")
}

func (s *SecurityLogger) SystemShutdown() {
	s.l.Info("system shutdown")
}

func (s *SecurityLogger) LoginSuccess(actor, role, ip string) {
	s.l.Info("login success", zap.String("actor", actor), zap.String("role", role), zap.String("ip", ip))
}

func (s *SecurityLogger) LoginFailure(identity, ip, reason string) {
	s.l.Warn("login failure", zap.String("identity", identity), zap.String("ip", ip), zap.String("reason", reason))
}

func (s *SecurityLogger) Lockout(key string, remaining time.Duration) {
	s.l.Warn("login locked out", zap.String("key", key), zap.Duration("remaining", remaining))
}

func (s *SecurityLogger) SessionDestroyed(reason string) {
	s.l.Info("session destroyed", zap.String("reason", reason))
}

func (s *SecurityLogger) TenantProvisioned(slug, database string) {
	s.l.Info("tenant provisioned", zap.String("slug", slug), zap.String("database", database))
}
