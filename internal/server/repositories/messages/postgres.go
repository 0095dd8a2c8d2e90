// Package messages provides storage for conversation messages. Ownership
// is resolved through the owning conversation.
package messages

import (
	"context"
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

func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	extracted, err := dbx.JSONB(msg.ExtractedTasks, "[]")
	if err != nil {
		return nil, err
	}
	metadata, err := dbx.JSONB(msg.Metadata, "{}")
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO messages (conversation_id, role, content, is_voice_input, extracted_tasks, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		msg.ConversationID, string(msg.Role), msg.Content, msg.IsVoiceInput, extracted, metadata, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Message, error) {
	query := `SELECT m.id, m.conversation_id, m.role, m.content, m.is_voice_input, m.extracted_tasks, m.metadata, m.created_at
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_id = $1
		ORDER BY m.conversation_id, m.created_at, m.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Message{}
	for rows.Next() {
		var (
			m                   models.Message
			extracted, metadata []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.IsVoiceInput,
			&extracted, &metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if err := dbx.ScanJSONB(extracted, &m.ExtractedTasks); err != nil {
			return nil, err
		}
		if err := dbx.ScanJSONB(metadata, &m.Metadata); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	query := `DELETE FROM messages
		WHERE conversation_id IN (SELECT id FROM conversations WHERE user_id = $1)`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
