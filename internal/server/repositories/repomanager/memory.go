package repomanager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/messages"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/users"
)

var errDuplicateEmail = errors.New("duplicate key value violates unique constraint \"users_email_key\"")

// memState is one version of the whole store. Rows are stored by value and
// copied on every read and write so callers never alias stored data.
type memState struct {
	seq   int64
	users map[int64]models.User
	tasks map[int64]models.Task
	convs map[int64]models.Conversation
	msgs  map[int64]models.Message
	prefs map[int64]models.PreferenceSet
}

func newMemState() *memState {
	return &memState{
		users: map[int64]models.User{},
		tasks: map[int64]models.Task{},
		convs: map[int64]models.Conversation{},
		msgs:  map[int64]models.Message{},
		prefs: map[int64]models.PreferenceSet{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		seq:   s.seq,
		users: maps.Clone(s.users),
		tasks: maps.Clone(s.tasks),
		convs: maps.Clone(s.convs),
		msgs:  maps.Clone(s.msgs),
		prefs: maps.Clone(s.prefs),
	}
}

func (s *memState) nextID() int64 {
	s.seq++
	return s.seq
}

// MemoryRepositoryManager is a copy-on-write store. A transaction works on
// a private clone that replaces the live state only when fn succeeds, so
// a failed transaction leaves no trace. Write transactions are serialized.
type MemoryRepositoryManager struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{state: newMemState(), now: time.Now}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }

// Repositories returns repositories that lock the live state per call.
func (m *MemoryRepositoryManager) Repositories() Repositories {
	return &memRepositories{mgr: m, live: true}
}

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft := m.state.clone()
	if err := fn(ctx, &memRepositories{mgr: m, state: draft}); err != nil {
		return err
	}
	m.state = draft
	return nil
}

func (m *MemoryRepositoryManager) WithReadTx(ctx context.Context, fn TxFunc) error {
	m.mu.RLock()
	view := m.state.clone()
	m.mu.RUnlock()

	return fn(ctx, &memRepositories{mgr: m, state: view})
}

// memRepositories either works on a transaction's private state or, when
// live is set, on the manager's current state under its lock.
type memRepositories struct {
	mgr   *MemoryRepositoryManager
	state *memState
	live  bool
}

func (r *memRepositories) read(fn func(s *memState) error) error {
	if r.live {
		r.mgr.mu.RLock()
		defer r.mgr.mu.RUnlock()
		return fn(r.mgr.state)
	}
	return fn(r.state)
}

func (r *memRepositories) write(fn func(s *memState) error) error {
	if r.live {
		r.mgr.mu.Lock()
		defer r.mgr.mu.Unlock()
		draft := r.mgr.state.clone()
		if err := fn(draft); err != nil {
			return err
		}
		r.mgr.state = draft
		return nil
	}
	return fn(r.state)
}

func (r *memRepositories) Users() users.Repository                 { return memUsers{r} }
func (r *memRepositories) Tasks() tasks.Repository                 { return memTasks{r} }
func (r *memRepositories) Conversations() conversations.Repository { return memConversations{r} }
func (r *memRepositories) Messages() messages.Repository           { return memMessages{r} }
func (r *memRepositories) Preferences() preferences.Repository     { return memPreferences{r} }

func copyTask(t models.Task) *models.Task {
	t.Tags = slices.Clone(t.Tags)
	return &t
}

func copyMessage(m models.Message) *models.Message {
	m.ExtractedTasks = slices.Clone(m.ExtractedTasks)
	m.Metadata = cloneDocument(m.Metadata)
	return &m
}

// cloneDocument deep-copies a decoded JSON object. Nested objects and arrays
// are copied; scalars are shared.
func cloneDocument(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneDocument(v)
	case models.Preferences:
		return models.Preferences(cloneDocument(v))
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

type memUsers struct{ r *memRepositories }

func (u memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	err := u.r.write(func(s *memState) error {
		for _, existing := range s.users {
			if existing.Email == user.Email {
				return fmt.Errorf("db error: %w", errDuplicateEmail)
			}
		}
		now := u.r.mgr.now().UTC()
		user.ID = s.nextID()
		user.CreatedAt = now
		user.LastLogin = now
		s.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var out *models.User
	err := u.r.read(func(s *memState) error {
		for _, existing := range s.users {
			if existing.Email == email {
				out = &existing
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return out, err
}

func (u memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	var out *models.User
	err := u.r.read(func(s *memState) error {
		existing, ok := s.users[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &existing
		return nil
	})
	return out, err
}

func (u memUsers) Upsert(_ context.Context, user *models.User) (*models.User, bool, error) {
	var inserted bool
	err := u.r.write(func(s *memState) error {
		now := u.r.mgr.now().UTC()
		for id, existing := range s.users {
			if existing.Email == user.Email {
				existing.Name = user.Name
				existing.AvatarURL = user.AvatarURL
				existing.ExternalID = user.ExternalID
				existing.LastLogin = now
				s.users[id] = existing
				*user = existing
				return nil
			}
		}
		inserted = true
		user.ID = s.nextID()
		user.CreatedAt = now
		user.LastLogin = now
		s.users[user.ID] = *user
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return user, inserted, nil
}

// LockForUpdate only checks existence; write transactions already hold the
// manager lock.
func (u memUsers) LockForUpdate(_ context.Context, id int64) error {
	return u.r.read(func(s *memState) error {
		if _, ok := s.users[id]; !ok {
			return common.ErrorNotFound
		}
		return nil
	})
}

type memTasks struct{ r *memRepositories }

func (t memTasks) Create(_ context.Context, task *models.Task) (*models.Task, error) {
	err := t.r.write(func(s *memState) error {
		if _, ok := s.users[task.UserID]; !ok {
			return fmt.Errorf("db error: tasks_user_id_fkey: user %d does not exist", task.UserID)
		}
		task.ID = s.nextID()
		if task.Tags == nil {
			task.Tags = []string{}
		}
		s.tasks[task.ID] = *copyTask(*task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (t memTasks) ListByUser(_ context.Context, userID int64) ([]*models.Task, error) {
	out := []*models.Task{}
	err := t.r.read(func(s *memState) error {
		for _, task := range s.tasks {
			if task.UserID == userID {
				out = append(out, copyTask(task))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *models.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}

func (t memTasks) Get(_ context.Context, userID, id int64) (*models.Task, error) {
	var out *models.Task
	err := t.r.read(func(s *memState) error {
		task, ok := s.tasks[id]
		if !ok || task.UserID != userID {
			return common.ErrorNotFound
		}
		out = copyTask(task)
		return nil
	})
	return out, err
}

func (t memTasks) Update(_ context.Context, task *models.Task) error {
	return t.r.write(func(s *memState) error {
		existing, ok := s.tasks[task.ID]
		if !ok || existing.UserID != task.UserID {
			return common.ErrorNotFound
		}
		updated := copyTask(*task)
		updated.CreatedAt = existing.CreatedAt
		if updated.Tags == nil {
			updated.Tags = []string{}
		}
		s.tasks[task.ID] = *updated
		return nil
	})
}

func (t memTasks) Delete(_ context.Context, userID, id int64) error {
	return t.r.write(func(s *memState) error {
		existing, ok := s.tasks[id]
		if !ok || existing.UserID != userID {
			return common.ErrorNotFound
		}
		delete(s.tasks, id)
		return nil
	})
}

func (t memTasks) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	err := t.r.write(func(s *memState) error {
		for id, task := range s.tasks {
			if task.UserID == userID {
				delete(s.tasks, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memConversations struct{ r *memRepositories }

func (c memConversations) Create(_ context.Context, conv *models.Conversation) (*models.Conversation, error) {
	err := c.r.write(func(s *memState) error {
		if _, ok := s.users[conv.UserID]; !ok {
			return fmt.Errorf("db error: conversations_user_id_fkey: user %d does not exist", conv.UserID)
		}
		conv.ID = s.nextID()
		s.convs[conv.ID] = *conv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (c memConversations) ListByUser(_ context.Context, userID int64) ([]*models.Conversation, error) {
	out := []*models.Conversation{}
	err := c.r.read(func(s *memState) error {
		for _, conv := range s.convs {
			if conv.UserID == userID {
				out = append(out, &conv)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *models.Conversation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}

// DeleteByUser fails while any of the user's conversations still has
// messages, mirroring the foreign key.
func (c memConversations) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	err := c.r.write(func(s *memState) error {
		for _, msg := range s.msgs {
			if conv, ok := s.convs[msg.ConversationID]; ok && conv.UserID == userID {
				return fmt.Errorf("db error: messages_conversation_id_fkey: conversation %d still referenced", conv.ID)
			}
		}
		for id, conv := range s.convs {
			if conv.UserID == userID {
				delete(s.convs, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memMessages struct{ r *memRepositories }

func (m memMessages) Create(_ context.Context, msg *models.Message) (*models.Message, error) {
	err := m.r.write(func(s *memState) error {
		if _, ok := s.convs[msg.ConversationID]; !ok {
			return fmt.Errorf("db error: messages_conversation_id_fkey: conversation %d does not exist", msg.ConversationID)
		}
		msg.ID = s.nextID()
		s.msgs[msg.ID] = *copyMessage(*msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (m memMessages) ListByUser(_ context.Context, userID int64) ([]*models.Message, error) {
	out := []*models.Message{}
	err := m.r.read(func(s *memState) error {
		for _, msg := range s.msgs {
			if conv, ok := s.convs[msg.ConversationID]; ok && conv.UserID == userID {
				out = append(out, copyMessage(msg))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *models.Message) int {
		if c := cmp.Compare(a.ConversationID, b.ConversationID); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}

func (m memMessages) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	var n int64
	err := m.r.write(func(s *memState) error {
		for id, msg := range s.msgs {
			if conv, ok := s.convs[msg.ConversationID]; ok && conv.UserID == userID {
				delete(s.msgs, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type memPreferences struct{ r *memRepositories }

func (p memPreferences) Get(_ context.Context, userID int64) (*models.PreferenceSet, error) {
	var out *models.PreferenceSet
	err := p.r.read(func(s *memState) error {
		set, ok := s.prefs[userID]
		if !ok {
			return common.ErrorNotFound
		}
		set.Preferences = cloneDocument(set.Preferences)
		out = &set
		return nil
	})
	return out, err
}

func (p memPreferences) Upsert(_ context.Context, set *models.PreferenceSet) error {
	return p.r.write(func(s *memState) error {
		if _, ok := s.users[set.UserID]; !ok {
			return fmt.Errorf("db error: user_preferences_user_id_fkey: user %d does not exist", set.UserID)
		}
		stored := *set
		stored.Preferences = cloneDocument(set.Preferences)
		if stored.Preferences == nil {
			stored.Preferences = models.Preferences{}
		}
		stored.UpdatedAt = p.r.mgr.now().UTC()
		s.prefs[set.UserID] = stored
		set.UpdatedAt = stored.UpdatedAt
		return nil
	})
}
