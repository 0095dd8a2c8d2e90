package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
)

// TaskService is single-task CRUD for the owner. A task owned by someone
// else is reported as common.ErrorNotFound.
type TaskService struct {
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewTaskService(m repomanager.RepositoryManager) *TaskService {
	return &TaskService{repomanager: m, now: time.Now}
}

func (s *TaskService) List(ctx context.Context, userID int64) ([]*models.Task, error) {
	return s.repomanager.Repositories().Tasks().ListByUser(ctx, userID)
}

func (s *TaskService) Get(ctx context.Context, userID, id int64) (*models.Task, error) {
	return s.repomanager.Repositories().Tasks().Get(ctx, userID, id)
}

// Create stores a new task. Missing priority and status default to medium
// and pending.
func (s *TaskService) Create(ctx context.Context, userID int64, in snapshot.Task) (*models.Task, error) {
	now := s.now().UTC()
	t := in.Model(userID)
	applyDefaults(t)
	t.CreatedAt, t.UpdatedAt = now, now

	created, err := s.repomanager.Repositories().Tasks().Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	return created, nil
}

// Update replaces the task's editable fields. CreatedAt is preserved.
func (s *TaskService) Update(ctx context.Context, userID, id int64, in snapshot.Task) (*models.Task, error) {
	var out *models.Task
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		existing, err := r.Tasks().Get(ctx, userID, id)
		if err != nil {
			return err
		}

		t := in.Model(userID)
		applyDefaults(t)
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
		t.UpdatedAt = s.now().UTC()

		if err := r.Tasks().Update(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id int64) error {
	return s.repomanager.Repositories().Tasks().Delete(ctx, userID, id)
}

func applyDefaults(t *models.Task) {
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
}
