package messages

import (
	"context"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	// ListByUser returns messages of every conversation the user owns,
	// grouped by conversation and ordered by creation time.
	ListByUser(ctx context.Context, userID int64) ([]*models.Message, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
