// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"time"
)

type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantTrial     TenantStatus = "trial"
	TenantSuspended TenantStatus = "suspended"
	TenantCancelled TenantStatus = "cancelled"
	TenantExpired   TenantStatus = "expired"
)

// Resolvable reports whether a tenant in this status may be resolved
// from request signals and logged into.
func (s TenantStatus) Resolvable() bool {
	return s == TenantActive || s == TenantTrial
}

func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantActive, TenantTrial, TenantSuspended, TenantCancelled, TenantExpired:
		return true
	}
	return false
}

type Tenant struct {
	ID        int64        `db:"id"`
	Name      string       `db:"name"`
	Slug      string       `db:"slug"`
	Status    TenantStatus `db:"status"`
	Database  string       `db:"database_name"`
	PlanID    int64        `db:"plan_id"`
	OwnerID   int64        `db:"owner_id"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

type Plan struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	MaxTenants int    `db:"max_tenants"`
	MaxUsers   int    `db:"max_users"`
}

// PlatformAdmin is a privileged user stored in the platform database.
type PlatformAdmin struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// TenantUser is a user row inside an individual tenant database.
type TenantUser struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Session is a durable login session. TenantID is zero for platform-scope
// sessions.
type Session struct {
	ID           string    `db:"id"`
	Token        string    `db:"token"`
	TenantID     int64     `db:"tenant_id"`
	UserID       int64     `db:"user_id"`
	Scope        string    `db:"scope"`
	Role         string    `db:"role"`
	Permissions  []string  `db:"permissions"`
	CSRFToken    string    `db:"csrf_token"`
	CreatedAt    time.Time `db:"created_at"`
	LastActivity time.Time `db:"last_activity"`
}

// LoginAttempt is the durable lockout counter for one identity key.
type LoginAttempt struct {
	Key         string    `db:"identity_key"`
	Count       int       `db:"attempt_count"`
	LastAttempt time.Time `db:"last_attempt"`
}

type AuditEvent struct {
	ID          int64     `db:"id"`
	ActorID     int64     `db:"actor_id"`
	ActorRole   string    `db:"actor_role"`
	TenantID    int64     `db:"tenant_id"`
	Event       string    `db:"event"`
	Description string    `db:"description"`
	IP          string    `db:"ip"`
	UserAgent   string    `db:"user_agent"`
	CreatedAt   time.Time `db:"created_at"`
}
