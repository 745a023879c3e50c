// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package config

import (
	"time"
)

// EnvSpec is the basic environment configuration setup needed for the app to start
type EnvSpec struct {
	OtelGRPCEndpoint string `envconfig:"otel_grpc_endpoint"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`
	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"true"`

	LogLevel string `envconfig:"log_level" default:"error"`
	Debug    bool   `envconfig:"debug" default:"false"`

	Port           int      `envconfig:"port" default:"8080"`
	AllowedOrigins []string `envconfig:"allowed_origins" default:""`

	// Platform database connection. DSN points at the shared platform
	// database; tenant databases live on the same server and are reached
	// by swapping the database name.
	DSN string `envconfig:"DSN" required:"true"`

	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	// Tenant database naming and creation parameters.
	TenantDBPrefix      string `envconfig:"tenant_db_prefix" default:"school_"`
	TenantDBEncoding    string `envconfig:"tenant_db_encoding" default:"UTF8"`
	TenantDBCollation   string `envconfig:"tenant_db_collation" default:""`
	TenantPathPrefix    string `envconfig:"tenant_path_prefix" default:"/s"`
	QueryLogEnabled     bool   `envconfig:"query_log_enabled" default:"false"`
	ProvisionNotifyFrom string `envconfig:"provision_notify_from" default:"noreply@edusuite.io"`

	// Authentication knobs.
	SessionTimeout    time.Duration `envconfig:"session_timeout" default:"30m"`
	LockoutThreshold  int           `envconfig:"lockout_threshold" default:"5"`
	LockoutWindow     time.Duration `envconfig:"lockout_window" default:"15m"`
	MinPasswordLength int           `envconfig:"min_password_length" default:"8"`
	BcryptCost        int           `envconfig:"bcrypt_cost" default:"12"`
	CSRFTokenLifetime time.Duration `envconfig:"csrf_token_lifetime" default:"2h"`
	LoginRatePerMin   int           `envconfig:"login_rate_per_min" default:"30"`

	// Optional shared cache for lockout counters. When empty, counters are
	// kept in the platform database.
	RedisAddr     string `envconfig:"redis_addr" default:""`
	RedisPassword string `envconfig:"redis_password" default:""`
	RedisDB       int    `envconfig:"redis_db" default:"0"`
}
