// Package tasks provides storage for user-owned tasks. Every query is
// scoped by owner, so a task id belonging to another user reads as
// common.ErrorNotFound.
package tasks

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

const selectColumns = `id, user_id, title, description, priority, status, due_date, project, tags, extracted_from, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	var (
		t                             models.Task
		description, project, fromSrc sql.NullString
		due                           sql.NullTime
		tags                          []byte
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.Title, &description, &t.Priority, &t.Status,
		&due, &project, &tags, &fromSrc, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Description = dbx.StringPtr(description)
	t.Project = dbx.StringPtr(project)
	t.ExtractedFrom = dbx.StringPtr(fromSrc)
	t.DueDate = dbx.TimePtr(due)
	t.Tags = []string{}
	if err := dbx.ScanJSONB(tags, &t.Tags); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	tags, err := dbx.JSONB(task.Tags, "[]")
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tasks (user_id, title, description, priority, status, due_date, project, tags, extracted_from, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		task.UserID, task.Title, dbx.NullString(task.Description), string(task.Priority), string(task.Status),
		dbx.NullTime(task.DueDate), dbx.NullString(task.Project), tags, dbx.NullString(task.ExtractedFrom),
		task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return task, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Task, error) {
	query := `SELECT ` + selectColumns + ` FROM tasks
		WHERE user_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id int64) (*models.Task, error) {
	query := `SELECT ` + selectColumns + ` FROM tasks
		WHERE id = $1 AND user_id = $2`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Update(ctx context.Context, task *models.Task) error {
	tags, err := dbx.JSONB(task.Tags, "[]")
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks SET title = $3, description = $4, priority = $5, status = $6,
			due_date = $7, project = $8, tags = $9, extracted_from = $10, updated_at = $11
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		task.ID, task.UserID, task.Title, dbx.NullString(task.Description), string(task.Priority), string(task.Status),
		dbx.NullTime(task.DueDate), dbx.NullString(task.Project), tags, dbx.NullString(task.ExtractedFrom), task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOne(res)
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
