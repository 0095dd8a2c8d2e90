package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/prefs"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/repomanager"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PreferenceService reconciles a client's preferences with the stored set.
// Unlike snapshot uploads, stored values win on conflicting keys.
type PreferenceService struct {
	repomanager repomanager.RepositoryManager
	tracer      trace.Tracer
	log         logging.Logger
}

func NewPreferenceService(m repomanager.RepositoryManager, tracer trace.Tracer, log logging.Logger) *PreferenceService {
	return &PreferenceService{repomanager: m, tracer: tracer, log: log}
}

// Sync merges local into the stored set, stores the result and returns it.
func (s *PreferenceService) Sync(ctx context.Context, userID int64, local models.Preferences) (models.Preferences, error) {
	ctx, span := s.tracer.Start(ctx, "sync.preferences", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	var merged models.Preferences
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		if err := r.Users().LockForUpdate(ctx, userID); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: user %d does not exist", common.ErrUnauthenticated, userID)
			}
			return fmt.Errorf("lock user: %w", err)
		}

		var cloud models.Preferences
		set, err := r.Preferences().Get(ctx, userID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return fmt.Errorf("get preferences: %w", err)
		default:
			cloud = set.Preferences
		}

		merged = prefs.Merge(local, cloud)
		if err := r.Preferences().Upsert(ctx, &models.PreferenceSet{UserID: userID, Preferences: merged}); err != nil {
			return fmt.Errorf("upsert preferences: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "preference sync failed")
		s.log.Error(ctx, "preference sync failed", "user_id", userID, "error", err)

		if errors.Is(err, common.ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrTransaction, err)
	}
	return merged, nil
}
