// Package users provides storage for local accounts.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/dbx"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, name, avatar_url, external_id)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, last_login
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.AvatarURL, user.ExternalID).Scan(&user.ID, &user.CreatedAt, &user.LastLogin)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, name, avatar_url, external_id, created_at, last_login FROM users
		 WHERE email = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT id, email, name, avatar_url, external_id, created_at, last_login FROM users
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.AvatarURL, &user.ExternalID, &user.CreatedAt, &user.LastLogin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// Upsert inserts user or, when the email is already taken, refreshes the
// profile fields of the existing row and stamps last_login with the database
// clock. The boolean reports whether a new row was inserted.
func (r *PostgresRepository) Upsert(ctx context.Context, user *models.User) (*models.User, bool, error) {
	query :=
		`INSERT INTO users (email, name, avatar_url, external_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (email) DO UPDATE
		 SET name = EXCLUDED.name, avatar_url = EXCLUDED.avatar_url, external_id = EXCLUDED.external_id, last_login = now()
		 RETURNING id, created_at, last_login, (xmax = 0) AS inserted
		 `

	var inserted bool
	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Name, user.AvatarURL, user.ExternalID).Scan(&user.ID, &user.CreatedAt, &user.LastLogin, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("db error: %w", err)
	}
	return user, inserted, nil
}

func (r *PostgresRepository) LockForUpdate(ctx context.Context, id int64) error {
	query :=
		`SELECT id FROM users
		 WHERE id = $1
		 FOR UPDATE
		 `

	var got int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
