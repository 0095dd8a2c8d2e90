package tasks

import (
	"context"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Task, error)
	Get(ctx context.Context, userID, id int64) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, userID, id int64) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
