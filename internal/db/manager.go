// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

// platformKey is the sentinel cache key for the shared platform database.
const platformKey = "platform"

const pgErrCodeDuplicateDatabase = "42P04"

// Tenant database names and creation options are interpolated into DDL,
// so they are validated against a fixed charset before use. Identifiers
// cannot be bound as statement parameters.
var (
	identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	localePattern     = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
)

type ManagerConfig struct {
	// DSN of the shared platform database. Tenant databases are reached
	// on the same server by swapping the database name.
	DSN string

	TenantDBPrefix string
	Encoding       string
	Collation      string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	TracingEnabled  bool
	QueryLogEnabled bool
}

// Manager owns one DBClient per database, created lazily and kept for the
// life of the process. It also carries the administrative operations that
// create and drop tenant databases.
type Manager struct {
	cfg ManagerConfig

	mu      sync.RWMutex
	clients map[string]*DBClient

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

var _ ManagerInterface = (*Manager)(nil)

func NewManager(cfg ManagerConfig, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Manager {
	m := new(Manager)

	m.cfg = cfg
	m.clients = make(map[string]*DBClient)

	m.tracer = tracer
	m.monitor = monitor
	m.logger = logger

	return m
}

// TenantDatabaseName derives the database name for a tenant id, e.g.
// school_42 for id 42 with the default prefix.
func (m *Manager) TenantDatabaseName(tenantID int64) string {
	return m.cfg.TenantDBPrefix + strconv.FormatInt(tenantID, 10)
}

// ValidateDatabaseName rejects identifiers outside the allowed charset or
// missing the configured tenant prefix.
func (m *Manager) ValidateDatabaseName(name string) error {
	if !identifierPattern.MatchString(name) {
		return &types.ValidationError{Field: "database", Reason: fmt.Sprintf("%q is not a valid identifier", name)}
	}
	if len(m.cfg.TenantDBPrefix) > 0 && len(name) <= len(m.cfg.TenantDBPrefix) {
		return &types.ValidationError{Field: "database", Reason: fmt.Sprintf("%q is shorter than the tenant prefix", name)}
	}
	if m.cfg.TenantDBPrefix != "" && name[:len(m.cfg.TenantDBPrefix)] != m.cfg.TenantDBPrefix {
		return &types.ValidationError{Field: "database", Reason: fmt.Sprintf("%q does not carry the tenant prefix %q", name, m.cfg.TenantDBPrefix)}
	}
	return nil
}

// Platform returns the shared platform database client, creating it on
// first call.
func (m *Manager) Platform(ctx context.Context) (DBClientInterface, error) {
	c, err := m.client(ctx, platformKey, "")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Tenant returns the cached client for the given tenant database name,
// creating it lazily. Repeated calls with the same name return the same
// handle.
func (m *Manager) Tenant(ctx context.Context, database string) (DBClientInterface, error) {
	if err := m.ValidateDatabaseName(database); err != nil {
		return nil, err
	}
	c, err := m.client(ctx, database, database)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (m *Manager) client(ctx context.Context, key, database string) (*DBClient, error) {
	_, span := m.tracer.Start(ctx, "db.Manager.client")
	defer span.End()

	m.mu.RLock()
	cached := m.clients[key]
	m.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	fresh, err := NewDBClient(Config{
		DSN:             m.cfg.DSN,
		Database:        database,
		MaxConns:        m.cfg.MaxConns,
		MinConns:        m.cfg.MinConns,
		MaxConnLifetime: m.cfg.MaxConnLifetime,
		MaxConnIdleTime: m.cfg.MaxConnIdleTime,
		TracingEnabled:  m.cfg.TracingEnabled,
	}, m.tracer, m.monitor, m.logger)
	if err != nil {
		return nil, &types.ConnectionError{Database: key, Err: err}
	}

	m.mu.Lock()
	if existing := m.clients[key]; existing != nil {
		// Lost the creation race. Keep the winner, close the duplicate.
		m.mu.Unlock()
		fresh.Close()
		return existing, nil
	}
	m.clients[key] = fresh
	m.mu.Unlock()

	return fresh, nil
}

// CreateTenantDatabase creates the database if it does not already exist.
// Calling it twice with the same name is not an error.
func (m *Manager) CreateTenantDatabase(ctx context.Context, database string) error {
	ctx, span := m.tracer.Start(ctx, "db.Manager.CreateTenantDatabase")
	defer span.End()

	if err := m.ValidateDatabaseName(database); err != nil {
		return err
	}

	platform, err := m.Platform(ctx)
	if err != nil {
		return err
	}

	exists, err := m.DatabaseExists(ctx, database)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	stmt := fmt.Sprintf("CREATE DATABASE %s", database)
	if m.cfg.Encoding != "" && localePattern.MatchString(m.cfg.Encoding) {
		stmt += fmt.Sprintf(" ENCODING '%s'", m.cfg.Encoding)
	}
	if m.cfg.Collation != "" && localePattern.MatchString(m.cfg.Collation) {
		stmt += fmt.Sprintf(" LC_COLLATE '%s' TEMPLATE template0", m.cfg.Collation)
	}

	start := time.Now()
	_, err = platform.ExecContext(ctx, stmt)
	m.logQuery(stmt, start, err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrCodeDuplicateDatabase {
		// A concurrent provisioner beat us to it.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", database, err)
	}

	return nil
}

// DropTenantDatabase removes the database and evicts any cached client for
// it. Only explicit administrative deletion flows call this.
func (m *Manager) DropTenantDatabase(ctx context.Context, database string) error {
	ctx, span := m.tracer.Start(ctx, "db.Manager.DropTenantDatabase")
	defer span.End()

	if err := m.ValidateDatabaseName(database); err != nil {
		return err
	}

	m.mu.Lock()
	if cached := m.clients[database]; cached != nil {
		cached.Close()
		delete(m.clients, database)
	}
	m.mu.Unlock()

	platform, err := m.Platform(ctx)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("DROP DATABASE IF EXISTS %s", database)
	start := time.Now()
	_, err = platform.ExecContext(ctx, stmt)
	m.logQuery(stmt, start, err)
	if err != nil {
		return fmt.Errorf("failed to drop database %s: %w", database, err)
	}

	return nil
}

// DatabaseExists checks catalog metadata for the database name.
func (m *Manager) DatabaseExists(ctx context.Context, database string) (bool, error) {
	platform, err := m.Platform(ctx)
	if err != nil {
		return false, err
	}

	var one int
	err = platform.QueryRowContext(ctx, "SELECT 1 FROM pg_database WHERE datname = $1", database).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}

	return true, nil
}

// Close releases every cached client. Called once at process shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, client := range m.clients {
		client.Close()
		delete(m.clients, key)
	}
}

// logQuery mirrors administrative statements into the diagnostic query
// log. It must never affect the outcome of the primary operation.
func (m *Manager) logQuery(stmt string, start time.Time, err error) {
	if !m.cfg.QueryLogEnabled {
		return
	}
	defer func() {
		_ = recover()
	}()

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.logger.Infof("query_log statement=%q duration=%s outcome=%s", stmt, time.Since(start), outcome)
}
