package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/messages"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestPostgresManager_SatisfiesInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	var m RepositoryManager = NewPostgresRepositoryManager(db)
	r := m.Repositories()

	var _ users.Repository = r.Users()
	var _ tasks.Repository = r.Tasks()
	var _ conversations.Repository = r.Conversations()
	var _ messages.Repository = r.Messages()
	var _ preferences.Repository = r.Preferences()
}

func TestPostgresManager_WithTxCommits(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+tasks`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	m := NewPostgresRepositoryManager(db)
	err := m.WithTx(context.Background(), func(ctx context.Context, r Repositories) error {
		_, err := r.Tasks().DeleteByUser(ctx, 1)
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresManager_WithTxRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+tasks`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	m := NewPostgresRepositoryManager(db)
	err := m.WithTx(context.Background(), func(ctx context.Context, r Repositories) error {
		_, err := r.Tasks().DeleteByUser(ctx, 1)
		return err
	})
	assert.ErrorContains(t, err, "boom")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresManager_WithReadTx(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM\s+user_preferences`).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	m := NewPostgresRepositoryManager(db)
	err := m.WithReadTx(context.Background(), func(ctx context.Context, r Repositories) error {
		_, err := r.Preferences().Get(ctx, 1)
		return err
	})
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, got *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if got != db {
			return errors.New("unexpected db")
		}
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestOpenPostgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	orig := sqlOpen
	defer func() { sqlOpen = orig }()

	var gotDriver, gotDSN string
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return db, nil
	}

	mock.ExpectPing()
	m, err := OpenPostgres(context.Background(), "postgres://localhost/taskmate")
	require.NoError(t, err)
	assert.Equal(t, "pgx", gotDriver)
	assert.Equal(t, "postgres://localhost/taskmate", gotDSN)

	mock.ExpectClose()
	require.NoError(t, m.Close())
}

func TestOpenPostgres_PingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	orig := sqlOpen
	defer func() { sqlOpen = orig }()
	sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }

	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	_, err = OpenPostgres(context.Background(), "dsn")
	assert.ErrorContains(t, err, "ping database: refused")
}

func TestOpenPostgres_OpenFails(t *testing.T) {
	orig := sqlOpen
	defer func() { sqlOpen = orig }()
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("bad driver") }

	_, err := OpenPostgres(context.Background(), "dsn")
	assert.ErrorContains(t, err, "open database: bad driver")
}
