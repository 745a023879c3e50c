// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package provisioner

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusuite/platform/internal/db"
	"github.com/edusuite/platform/internal/logging"
	"github.com/edusuite/platform/internal/monitoring"
	"github.com/edusuite/platform/internal/storage"
	"github.com/edusuite/platform/internal/tracing"
	"github.com/edusuite/platform/internal/types"
)

func newTestProvisioner(manager db.ManagerInterface, s storage.StorageInterface) *Service {
	return NewService(
		manager,
		s,
		nil,
		bcrypt.MinCost,
		8,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)
}

func validRequest() *Request {
	return &Request{
		Name:          "Greenwood High",
		Slug:          "greenwood",
		OwnerID:       10,
		PlanID:        1,
		AdminEmail:    "head@greenwood.test",
		AdminName:     "Amina Diallo",
		AdminPhone:    "+220 555 0101",
		AdminPassword: "first-day-of-term",
	}
}

func TestService_ConfiguredPasswordMinimum(t *testing.T) {
	svc := NewService(
		nil,
		nil,
		nil,
		bcrypt.MinCost,
		12,
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test"),
		logging.NewNoopLogger(),
	)

	req := validRequest()
	req.AdminPassword = "tenchars10"

	err := svc.validateRequest(req)

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "admin_password", verr.Field)
}

func TestService_ValidateRequest(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Request)
		field   string
		wantErr bool
	}{
		{name: "valid", mutate: func(*Request) {}, wantErr: false},
		{name: "missing name", mutate: func(r *Request) { r.Name = "" }, field: "Name", wantErr: true},
		{name: "missing slug", mutate: func(r *Request) { r.Slug = "" }, field: "Slug", wantErr: true},
		{name: "bad slug", mutate: func(r *Request) { r.Slug = "Green Wood!" }, field: "slug", wantErr: true},
		{name: "missing owner", mutate: func(r *Request) { r.OwnerID = 0 }, field: "OwnerID", wantErr: true},
		{name: "bad email", mutate: func(r *Request) { r.AdminEmail = "not-an-email" }, field: "AdminEmail", wantErr: true},
		{name: "missing phone", mutate: func(r *Request) { r.AdminPhone = "" }, field: "AdminPhone", wantErr: true},
		{name: "short password", mutate: func(r *Request) { r.AdminPassword = "short" }, field: "AdminPassword", wantErr: true},
	}

	svc := newTestProvisioner(nil, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(req)

			err := svc.validateRequest(req)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func newSchemaMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return mockDB, mock
}

func TestService_BuildSchemaAllSteps(t *testing.T) {
	mockDB, mock := newSchemaMock(t)

	mock.ExpectExec(`SET session_replication_role = replica`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, step := range Catalog() {
		mock.ExpectExec(step.SQL).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`SET session_replication_role = origin`).WillReturnResult(sqlmock.NewResult(0, 0))

	svc := newTestProvisioner(nil, nil)
	report := &Report{Database: "school_1"}
	svc.buildSchema(context.Background(), mockDB, report)

	assert.Equal(t, TableCount(), report.TablesAttempted)
	assert.Equal(t, TableCount(), report.TablesCreated)
	assert.Empty(t, report.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_BuildSchemaToleratesStepFailure(t *testing.T) {
	mockDB, mock := newSchemaMock(t)

	const failing = "attendance"
	mock.ExpectExec(`SET session_replication_role = replica`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, step := range Catalog() {
		if step.Name == failing {
			mock.ExpectExec(step.SQL).WillReturnError(errors.New("type mismatch"))
			continue
		}
		mock.ExpectExec(step.SQL).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`SET session_replication_role = origin`).WillReturnResult(sqlmock.NewResult(0, 0))

	svc := newTestProvisioner(nil, nil)
	report := &Report{Database: "school_1"}
	svc.buildSchema(context.Background(), mockDB, report)

	// The failing step is recorded and every later step still ran.
	assert.Equal(t, TableCount(), report.TablesAttempted)
	assert.Equal(t, TableCount()-1, report.TablesCreated)
	assert.Equal(t, []string{failing}, report.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateAdminUser(t *testing.T) {
	mockDB, mock := newSchemaMock(t)

	mock.ExpectQuery(`INSERT INTO users (email, name, phone, role, password_hash) VALUES ($1, $2, $3, 'admin', $4) RETURNING id`).
		WithArgs("head@greenwood.test", "Amina Diallo", "+220 555 0101", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	svc := newTestProvisioner(nil, nil)
	id, err := svc.createAdminUser(context.Background(), mockDB, validRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateAdminUserFailureIsStrict(t *testing.T) {
	mockDB, mock := newSchemaMock(t)

	mock.ExpectQuery(`INSERT INTO users (email, name, phone, role, password_hash) VALUES ($1, $2, $3, 'admin', $4) RETURNING id`).
		WillReturnError(errors.New("relation users does not exist"))

	svc := newTestProvisioner(nil, nil)
	_, err := svc.createAdminUser(context.Background(), mockDB, validRequest())
	assert.Error(t, err)
}

// fakeConn adapts a sqlmock database to the client interface the
// provisioner receives from the connection manager.
type fakeConn struct {
	db   *sql.DB
	name string
}

var _ db.DBClientInterface = (*fakeConn)(nil)

func (f *fakeConn) Statement(context.Context) sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(f.db)
}

func (f *fakeConn) TxStatement(context.Context) (db.TxInterface, sq.StatementBuilderType, error) {
	return nil, sq.StatementBuilderType{}, errors.New("not implemented")
}

func (f *fakeConn) BeginTx(ctx context.Context) (context.Context, db.TxInterface, error) {
	return ctx, nil, errors.New("not implemented")
}

func (f *fakeConn) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (f *fakeConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return f.db.ExecContext(ctx, query, args...)
}

func (f *fakeConn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return f.db.QueryRowContext(ctx, query, args...)
}

func (f *fakeConn) Conn(ctx context.Context) (*sql.Conn, error) {
	return f.db.Conn(ctx)
}

func (f *fakeConn) Database() string { return f.name }
func (f *fakeConn) Close()           {}

type fakeManager struct {
	db.ManagerInterface

	conn          *fakeConn
	prefix        string
	createdDBs    []string
	createDBErr   error
	connectionErr error
}

func (f *fakeManager) TenantDatabaseName(id int64) string {
	return f.prefix + "42"
}

func (f *fakeManager) CreateTenantDatabase(_ context.Context, database string) error {
	if f.createDBErr != nil {
		return f.createDBErr
	}
	f.createdDBs = append(f.createdDBs, database)
	return nil
}

func (f *fakeManager) Tenant(context.Context, string) (db.DBClientInterface, error) {
	if f.connectionErr != nil {
		return nil, f.connectionErr
	}
	return f.conn, nil
}

type fakeProvisionStorage struct {
	storage.StorageInterface

	plan       *types.Plan
	owned      int
	created    *types.Tenant
	databases  map[int64]string
	createErr  error
	statusErrs map[int64]error
}

func (f *fakeProvisionStorage) GetPlan(_ context.Context, id int64) (*types.Plan, error) {
	if f.plan == nil || f.plan.ID != id {
		return nil, storage.ErrNotFound
	}
	return f.plan, nil
}

func (f *fakeProvisionStorage) CountTenantsByOwner(context.Context, int64) (int, error) {
	return f.owned, nil
}

func (f *fakeProvisionStorage) CreateTenant(_ context.Context, t *types.Tenant) (*types.Tenant, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	created := *t
	created.ID = 42
	f.created = &created
	return &created, nil
}

func (f *fakeProvisionStorage) SetTenantDatabase(_ context.Context, id int64, database string) error {
	if f.databases == nil {
		f.databases = make(map[int64]string)
	}
	f.databases[id] = database
	return nil
}

func TestService_Provision(t *testing.T) {
	mockDB, mock := newSchemaMock(t)

	mock.ExpectExec(`SET session_replication_role = replica`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, step := range Catalog() {
		mock.ExpectExec(step.SQL).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`SET session_replication_role = origin`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO users (email, name, phone, role, password_hash) VALUES ($1, $2, $3, 'admin', $4) RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	manager := &fakeManager{conn: &fakeConn{db: mockDB, name: "school_42"}, prefix: "school_"}
	s := &fakeProvisionStorage{plan: &types.Plan{ID: 1, MaxTenants: 3}, owned: 1}
	svc := newTestProvisioner(manager, s)

	report, err := svc.Provision(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, "school_42", report.Database)
	assert.Equal(t, int64(7), report.AdminUserID)
	assert.Equal(t, TableCount(), report.TablesCreated)
	assert.Equal(t, []string{"school_42"}, manager.createdDBs)
	assert.Equal(t, "school_42", s.databases[42])
	assert.Equal(t, types.TenantTrial, s.created.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ProvisionPlanLimit(t *testing.T) {
	s := &fakeProvisionStorage{plan: &types.Plan{ID: 1, MaxTenants: 2}, owned: 2}
	svc := newTestProvisioner(&fakeManager{prefix: "school_"}, s)

	_, err := svc.Provision(context.Background(), validRequest())
	var limit *types.LimitExceededError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 2, limit.Allowed)
	assert.Nil(t, s.created)
}

func TestService_ProvisionUnknownPlan(t *testing.T) {
	s := &fakeProvisionStorage{}
	svc := newTestProvisioner(&fakeManager{prefix: "school_"}, s)

	_, err := svc.Provision(context.Background(), validRequest())
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "plan_id", verr.Field)
}

func TestService_ProvisionDatabaseCreationFailure(t *testing.T) {
	manager := &fakeManager{prefix: "school_", createDBErr: errors.New("disk full")}
	s := &fakeProvisionStorage{plan: &types.Plan{ID: 1, MaxTenants: 3}}
	svc := newTestProvisioner(manager, s)

	_, err := svc.Provision(context.Background(), validRequest())
	var perr *types.ProvisioningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "create database", perr.Stage)
}

func TestService_ProvisionDuplicateSlug(t *testing.T) {
	s := &fakeProvisionStorage{plan: &types.Plan{ID: 1, MaxTenants: 3}, createErr: storage.ErrDuplicateKey}
	svc := newTestProvisioner(&fakeManager{prefix: "school_"}, s)

	_, err := svc.Provision(context.Background(), validRequest())
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slug", verr.Field)
}

// rotatingDriver hands out a fresh numbered connection on every checkout
// and records which connection each statement ran on.
type rotatingDriver struct {
	mu    sync.Mutex
	next  int
	stmts []int
}

func (d *rotatingDriver) Open(string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	return &rotatingConn{id: d.next, drv: d}, nil
}

type rotatingConn struct {
	id  int
	drv *rotatingDriver
}

func (c *rotatingConn) record() {
	c.drv.mu.Lock()
	c.drv.stmts = append(c.drv.stmts, c.id)
	c.drv.mu.Unlock()
}

func (c *rotatingConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c *rotatingConn) Close() error                        { return nil }
func (c *rotatingConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

func (c *rotatingConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	c.record()
	return driver.RowsAffected(0), nil
}

func (c *rotatingConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	c.record()
	return &idRows{}, nil
}

type idRows struct{ done bool }

func (r *idRows) Columns() []string { return []string{"id"} }
func (r *idRows) Close() error      { return nil }
func (r *idRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = int64(7)
	return nil
}

// session_replication_role is per session. The whole schema build,
// including the restore and the admin insert, must run on one pinned
// connection so a relaxed session can never leak back into the pool.
func TestService_ProvisionPinsSchemaSession(t *testing.T) {
	drv := &rotatingDriver{}
	sql.Register("schema-session-rotate", drv)

	pool, err := sql.Open("schema-session-rotate", "")
	require.NoError(t, err)
	defer pool.Close()
	// Without pinning, every statement would check out a new connection.
	pool.SetMaxIdleConns(0)

	manager := &fakeManager{conn: &fakeConn{db: pool, name: "school_42"}, prefix: "school_"}
	s := &fakeProvisionStorage{plan: &types.Plan{ID: 1, MaxTenants: 3}}
	svc := newTestProvisioner(manager, s)

	report, err := svc.Provision(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.AdminUserID)

	require.NotEmpty(t, drv.stmts)
	for _, id := range drv.stmts {
		assert.Equal(t, drv.stmts[0], id)
	}
}

func TestService_ProvisionAdminFailureIsFatal(t *testing.T) {
	mockDB, mock := newSchemaMock(t)

	mock.ExpectExec(`SET session_replication_role = replica`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, step := range Catalog() {
		mock.ExpectExec(step.SQL).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(`SET session_replication_role = origin`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO users (email, name, phone, role, password_hash) VALUES ($1, $2, $3, 'admin', $4) RETURNING id`).
		WillReturnError(errors.New("duplicate key"))

	manager := &fakeManager{conn: &fakeConn{db: mockDB, name: "school_42"}, prefix: "school_"}
	s := &fakeProvisionStorage{plan: &types.Plan{ID: 1, MaxTenants: 3}}
	svc := newTestProvisioner(manager, s)

	_, err := svc.Provision(context.Background(), validRequest())
	var perr *types.ProvisioningError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "admin user", perr.Stage)
}
