// Package conversations provides storage for user-owned conversations.
package conversations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/taskmate/internal/dbx"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (user_id, title, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		conv.UserID, conv.Title, dbx.NullString(conv.Summary), conv.CreatedAt, conv.UpdatedAt,
	).Scan(&conv.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return conv, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	query := `SELECT id, user_id, title, summary, created_at, updated_at FROM conversations
		WHERE user_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Conversation{}
	for rows.Next() {
		var (
			c       models.Conversation
			summary sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &summary, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.Summary = dbx.StringPtr(summary)
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// DeleteByUser removes the user's conversations. Their messages must be
// deleted first.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
