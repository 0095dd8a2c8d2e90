package conversations

import (
	"context"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Conversation, error)
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
