package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/archive"
	"github.com/dmitrijs2005/taskmate/internal/server/auth"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/messages"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
	"github.com/dmitrijs2005/taskmate/internal/telemetry"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type fakeVerifier struct {
	identities map[string]*models.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, credential string) (*models.Identity, error) {
	id, ok := f.identities[credential]
	if !ok {
		return nil, errors.New("unknown credential")
	}
	copied := *id
	return &copied, nil
}

type fakeArchiver struct {
	calls []int64
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, userID int64, _ *snapshot.Snapshot) (string, error) {
	f.calls = append(f.calls, userID)
	if f.err != nil {
		return "", f.err
	}
	return "users/key.json", nil
}

// faultyManager fails the n-th message insert of every transaction after
// letting the earlier ones through.
type faultyManager struct {
	*repomanager.MemoryRepositoryManager
	failAt int
	calls  int
}

func (f *faultyManager) WithTx(ctx context.Context, fn repomanager.TxFunc) error {
	f.calls = 0
	return f.MemoryRepositoryManager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return fn(ctx, &faultyRepos{Repositories: r, f: f})
	})
}

type faultyRepos struct {
	repomanager.Repositories
	f *faultyManager
}

func (r *faultyRepos) Messages() messages.Repository {
	return &faultyMessages{Repository: r.Repositories.Messages(), f: r.f}
}

type faultyMessages struct {
	messages.Repository
	f *faultyManager
}

func (m *faultyMessages) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	m.f.calls++
	if m.f.calls == m.f.failAt {
		return nil, errors.New("db error: disk full")
	}
	return m.Repository.Create(ctx, msg)
}

// failingPreferences fails every preference upsert made inside a
// transaction.
type failingPreferences struct {
	*repomanager.MemoryRepositoryManager
}

func (f *failingPreferences) WithTx(ctx context.Context, fn repomanager.TxFunc) error {
	return f.MemoryRepositoryManager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		return fn(ctx, &failingPreferenceRepos{Repositories: r})
	})
}

type failingPreferenceRepos struct {
	repomanager.Repositories
}

func (r *failingPreferenceRepos) Preferences() preferences.Repository {
	return failingPreferenceRepo{Repository: r.Repositories.Preferences()}
}

type failingPreferenceRepo struct {
	preferences.Repository
}

func (failingPreferenceRepo) Upsert(context.Context, *models.PreferenceSet) error {
	return errors.New("db error: disk full")
}

func newSyncService(t *testing.T, m repomanager.RepositoryManager, a archive.Archiver) *SyncService {
	t.Helper()
	svc, err := NewSyncService(m, a, telemetry.Nop(), logging.Nop{})
	require.NoError(t, err)
	return svc
}

func newAuthority(t *testing.T) *auth.Authority {
	t.Helper()
	a, err := auth.NewAuthority("test-secret")
	require.NoError(t, err)
	return a
}

func createUser(t *testing.T, m repomanager.RepositoryManager, email string) *models.User {
	t.Helper()
	u, err := m.Repositories().Users().Create(context.Background(), &models.User{Email: email, Name: email})
	require.NoError(t, err)
	return u
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func sampleSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Tasks: []snapshot.Task{
			{ID: "t1", Title: "Buy milk", Priority: "low", Status: "pending", Tags: []string{}, CreatedAt: t0, UpdatedAt: t0},
			{ID: "t2", Title: "File taxes", Description: ptr("before april"), Priority: "urgent", Status: "in-progress",
				DueDate: ptr(t0.Add(90 * 24 * time.Hour)), Project: ptr("home"), Tags: []string{"money", "gov"},
				CreatedAt: t0.Add(time.Minute), UpdatedAt: t0.Add(time.Hour), ExtractedFrom: ptr("email")},
		},
		Conversations: []snapshot.Conversation{
			{
				ID: "c1", Title: "Morning", Summary: ptr("errands"), CreatedAt: t0, UpdatedAt: t0,
				Messages: []snapshot.Message{
					{ID: "m1", Type: "user", Content: "remind me to buy milk", Timestamp: t0, IsVoiceInput: true},
					{ID: "m2", Type: "assistant", Content: "added", Timestamp: t0.Add(time.Second),
						ExtractedTasks: []string{"t1"}, Metadata: map[string]any{"model": "small"}},
				},
			},
			{ID: "c2", Title: "Empty", CreatedAt: t0.Add(time.Minute), UpdatedAt: t0.Add(time.Minute), Messages: []snapshot.Message{}},
		},
		Preferences: map[string]any{"theme": "dark"},
	}
}

// normalize drops identifiers so snapshots can be compared across uploads.
func normalize(s *snapshot.Snapshot) *snapshot.Snapshot {
	out := *s
	out.Tasks = make([]snapshot.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		t.ID = ""
		out.Tasks[i] = t
	}
	out.Conversations = make([]snapshot.Conversation, len(s.Conversations))
	for i, c := range s.Conversations {
		c.ID = ""
		msgs := make([]snapshot.Message, len(c.Messages))
		for j, m := range c.Messages {
			m.ID = ""
			m.ExtractedTasks = nil
			msgs[j] = m
		}
		c.Messages = msgs
		out.Conversations[i] = c
	}
	return &out
}
