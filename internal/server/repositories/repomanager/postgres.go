// Package repomanager vends repository sets and runs them inside
// transactions. The PostgreSQL manager wires the pgx driver, goose
// migrations and dbx.WithTx; the in-memory manager serves tests and
// single-process deployments.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/taskmate/internal/dbx"
	"github.com/dmitrijs2005/taskmate/internal/server/migrations"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/messages"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// postgresRepositories binds every repository to the same DBTX.
type postgresRepositories struct {
	db dbx.DBTX
}

func (r postgresRepositories) Users() users.Repository { return users.NewPostgresRepository(r.db) }
func (r postgresRepositories) Tasks() tasks.Repository { return tasks.NewPostgresRepository(r.db) }
func (r postgresRepositories) Conversations() conversations.Repository {
	return conversations.NewPostgresRepository(r.db)
}
func (r postgresRepositories) Messages() messages.Repository {
	return messages.NewPostgresRepository(r.db)
}
func (r postgresRepositories) Preferences() preferences.Repository {
	return preferences.NewPostgresRepository(r.db)
}

// PostgresRepositoryManager runs repositories over a *sql.DB opened with the
// pgx driver.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for testing sql.Open.
var sqlOpen = sql.Open

// RunMigrations sets up goose with the embedded migrations and runs them
// against the manager's database.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

func (m *PostgresRepositoryManager) Repositories() Repositories {
	return postgresRepositories{db: m.db}
}

func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn TxFunc) error {
	return dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, postgresRepositories{db: tx})
	})
}

func (m *PostgresRepositoryManager) WithReadTx(ctx context.Context, fn TxFunc) error {
	return dbx.WithTx(ctx, m.db, dbx.ReadOnlySnapshot, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, postgresRepositories{db: tx})
	})
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// NewPostgresRepositoryManager wraps an already opened database.
func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

// OpenPostgres opens dsn with the pgx driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresRepositoryManager(db), nil
}
