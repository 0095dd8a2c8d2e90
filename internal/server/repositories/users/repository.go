package users

import (
	"context"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// Upsert creates the user or refreshes the profile of the user with the
	// same email in one statement. The boolean is true for a new row.
	Upsert(ctx context.Context, user *models.User) (*models.User, bool, error)
	// LockForUpdate holds the user row until the surrounding transaction
	// ends. Returns common.ErrorNotFound for an unknown id.
	LockForUpdate(ctx context.Context, id int64) error
}
