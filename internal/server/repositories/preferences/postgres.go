// Package preferences stores the single preference document each user owns.
package preferences

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

func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*models.PreferenceSet, error) {
	query := `SELECT user_id, preferences, updated_at FROM user_preferences
		WHERE user_id = $1`

	var (
		set models.PreferenceSet
		raw []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&set.UserID, &raw, &set.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	set.Preferences = models.Preferences{}
	if err := dbx.ScanJSONB(raw, &set.Preferences); err != nil {
		return nil, err
	}
	return &set, nil
}

// Upsert replaces the whole document. set.UpdatedAt receives the database
// timestamp.
func (r *PostgresRepository) Upsert(ctx context.Context, set *models.PreferenceSet) error {
	doc, err := dbx.JSONB(set.Preferences, "{}")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_preferences (user_id, preferences, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id)
		DO UPDATE SET preferences = EXCLUDED.preferences, updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, set.UserID, doc).Scan(&set.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
