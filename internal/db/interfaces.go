// Copyright 2025 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package db

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

type DBClientInterface interface {
	Statement(context.Context) sq.StatementBuilderType
	TxStatement(context.Context) (TxInterface, sq.StatementBuilderType, error)
	BeginTx(context.Context) (context.Context, TxInterface, error)
	WithTx(context.Context, func(context.Context) error) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Conn(ctx context.Context) (*sql.Conn, error)
	Database() string
	Close()
}

type TxInterface interface {
	Commit() error
	Rollback() error
	sq.BaseRunner
}

type ManagerInterface interface {
	Platform(ctx context.Context) (DBClientInterface, error)
	Tenant(ctx context.Context, database string) (DBClientInterface, error)
	TenantDatabaseName(tenantID int64) string
	CreateTenantDatabase(ctx context.Context, database string) error
	DropTenantDatabase(ctx context.Context, database string) error
	DatabaseExists(ctx context.Context, database string) (bool, error)
	Close()
}
