package repomanager

import (
	"context"

	"github.com/dmitrijs2005/taskmate/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/messages"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/preferences"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/taskmate/internal/server/repositories/users"
)

// Repositories is a set of repositories bound to one connection or one
// transaction.
type Repositories interface {
	Users() users.Repository
	Tasks() tasks.Repository
	Conversations() conversations.Repository
	Messages() messages.Repository
	Preferences() preferences.Repository
}

// TxFunc runs inside a transaction. Returning an error, or panicking, rolls
// the transaction back.
type TxFunc func(ctx context.Context, r Repositories) error

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// Repositories returns repositories outside any transaction.
	Repositories() Repositories
	WithTx(ctx context.Context, fn TxFunc) error
	// WithReadTx runs fn against one consistent read-only view.
	WithReadTx(ctx context.Context, fn TxFunc) error
	Close() error
}
