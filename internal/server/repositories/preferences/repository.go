package preferences

import (
	"context"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the user has no stored set.
	Get(ctx context.Context, userID int64) (*models.PreferenceSet, error)
	Upsert(ctx context.Context, set *models.PreferenceSet) error
}
