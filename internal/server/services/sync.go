package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/archive"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
	"github.com/dmitrijs2005/taskmate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// UploadResult counts the rows written by a committed upload.
type UploadResult struct {
	Tasks         int
	Conversations int
	Messages      int
}

// SyncService replaces and reads a user's whole task and conversation
// state. Uploads are replace-all: the snapshot becomes the complete truth.
type SyncService struct {
	repomanager repomanager.RepositoryManager
	archiver    archive.Archiver
	tracer      trace.Tracer
	metrics     *telemetry.SyncMetrics
	log         logging.Logger
}

func NewSyncService(m repomanager.RepositoryManager, a archive.Archiver, tp *telemetry.Provider, log logging.Logger) (*SyncService, error) {
	metrics, err := telemetry.NewSyncMetrics(tp.Meter)
	if err != nil {
		return nil, fmt.Errorf("create sync metrics: %w", err)
	}
	return &SyncService{repomanager: m, archiver: a, tracer: tp.Tracer, metrics: metrics, log: log}, nil
}

// Upload atomically replaces the user's tasks, conversations and messages
// with snap, then upserts preferences when snap carries them. Storage
// faults are returned wrapped in common.ErrTransaction after rollback.
func (s *SyncService) Upload(ctx context.Context, userID int64, snap *snapshot.Snapshot) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "sync.upload", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("snapshot.tasks", len(snap.Tasks)),
		attribute.Int("snapshot.conversations", len(snap.Conversations)),
	))
	defer span.End()

	var result *UploadResult
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		result, err = replaceAll(ctx, r, userID, snap)
		return err
	})
	if err != nil {
		s.metrics.Uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload rolled back")
		s.log.Error(ctx, "snapshot upload failed", "user_id", userID, "error", err)

		if errors.Is(err, common.ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", common.ErrTransaction, err)
	}

	s.metrics.Uploads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	s.metrics.TasksWritten.Add(ctx, int64(result.Tasks))
	s.log.Info(ctx, "snapshot uploaded", "user_id", userID,
		"tasks", result.Tasks, "conversations", result.Conversations, "messages", result.Messages)

	if key, err := s.archiver.Archive(ctx, userID, snap); err != nil {
		s.log.Warn(ctx, "snapshot archive failed", "user_id", userID, "error", err)
	} else if key != "" {
		s.log.Debug(ctx, "snapshot archived", "user_id", userID, "key", key)
	}

	return result, nil
}

func replaceAll(ctx context.Context, r repomanager.Repositories, userID int64, snap *snapshot.Snapshot) (*UploadResult, error) {
	if err := r.Users().LockForUpdate(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: user %d does not exist", common.ErrUnauthenticated, userID)
		}
		return nil, fmt.Errorf("lock user: %w", err)
	}

	if _, err := r.Messages().DeleteByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete messages: %w", err)
	}
	if _, err := r.Conversations().DeleteByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete conversations: %w", err)
	}
	if _, err := r.Tasks().DeleteByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete tasks: %w", err)
	}

	res := &UploadResult{}

	// Client task ids are replaced; messages referring to them follow.
	taskIDs := make(map[string]string, len(snap.Tasks))
	for i, t := range snap.Tasks {
		created, err := r.Tasks().Create(ctx, t.Model(userID))
		if err != nil {
			return nil, fmt.Errorf("insert task %d: %w", i, err)
		}
		if t.ID != "" {
			taskIDs[t.ID] = snapshot.FormatID(created.ID)
		}
		res.Tasks++
	}

	for i, c := range snap.Conversations {
		conv, err := r.Conversations().Create(ctx, c.Model(userID))
		if err != nil {
			return nil, fmt.Errorf("insert conversation %d: %w", i, err)
		}
		res.Conversations++

		for j, m := range c.Messages {
			msg := m.Model(conv.ID)
			msg.ExtractedTasks = remap(m.ExtractedTasks, taskIDs)
			if _, err := r.Messages().Create(ctx, msg); err != nil {
				return nil, fmt.Errorf("insert message %d of conversation %d: %w", j, i, err)
			}
			res.Messages++
		}
	}

	if snap.Preferences != nil {
		set := &models.PreferenceSet{UserID: userID, Preferences: snap.Preferences}
		if err := r.Preferences().Upsert(ctx, set); err != nil {
			return nil, fmt.Errorf("upsert preferences: %w", err)
		}
	}

	return res, nil
}

// remap rewrites references to tasks of the same upload; unknown
// references are kept as sent.
func remap(refs []string, ids map[string]string) []string {
	if refs == nil {
		return nil
	}
	out := make([]string, len(refs))
	for i, ref := range refs {
		if id, ok := ids[ref]; ok {
			out[i] = id
		} else {
			out[i] = ref
		}
	}
	return out
}

// Download reads the user's full state from one consistent view.
func (s *SyncService) Download(ctx context.Context, userID int64) (*snapshot.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "sync.download", trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	var snap *snapshot.Snapshot
	err := s.repomanager.WithReadTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		tasks, err := r.Tasks().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		convs, err := r.Conversations().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		msgs, err := r.Messages().ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}

		var prefs models.Preferences
		set, err := r.Preferences().Get(ctx, userID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return fmt.Errorf("get preferences: %w", err)
		default:
			prefs = set.Preferences
		}

		snap = snapshot.Build(tasks, convs, msgs, prefs)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download failed")
		return nil, err
	}

	s.metrics.Downloads.Add(ctx, 1)
	span.SetAttributes(
		attribute.Int("snapshot.tasks", len(snap.Tasks)),
		attribute.Int("snapshot.conversations", len(snap.Conversations)),
	)
	return snap, nil
}
