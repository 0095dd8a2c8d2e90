// Package httpapi exposes the account, sync and task services over HTTP
// with JSON bodies. Tokens are accepted from the session cookie or a
// Bearer header.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/logging"
	"github.com/dmitrijs2005/taskmate/internal/server/auth"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/server/schema"
	"github.com/dmitrijs2005/taskmate/internal/server/services"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
)

type AccountService interface {
	Login(ctx context.Context, credential string) (*services.Session, error)
	Refresh(ctx context.Context, token string) (*services.Session, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
}

type SyncService interface {
	Upload(ctx context.Context, userID int64, snap *snapshot.Snapshot) (*services.UploadResult, error)
	Download(ctx context.Context, userID int64) (*snapshot.Snapshot, error)
}

type PreferenceService interface {
	Sync(ctx context.Context, userID int64, local models.Preferences) (models.Preferences, error)
}

type TaskService interface {
	List(ctx context.Context, userID int64) ([]*models.Task, error)
	Get(ctx context.Context, userID, id int64) (*models.Task, error)
	Create(ctx context.Context, userID int64, in snapshot.Task) (*models.Task, error)
	Update(ctx context.Context, userID, id int64, in snapshot.Task) (*models.Task, error)
	Delete(ctx context.Context, userID, id int64) error
}

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Accounts    AccountService
	Sync        SyncService
	Preferences PreferenceService
	Tasks       TaskService
	Tokens      TokenVerifier
	Validator   *schema.Validator
	Extractor   auth.Extractor
}

type Options struct {
	Address         string
	CookieSecure    bool
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

type Server struct {
	deps   Deps
	opts   Options
	logger logging.Logger
}

func NewServer(l logging.Logger, deps Deps, opts Options) *Server {
	if deps.Extractor == nil {
		deps.Extractor = auth.DefaultChain()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{deps: deps, opts: opts, logger: l.With("module", "http_server")}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.Handle("GET /api/auth/me", s.requireAuth(s.handleMe))

	mux.Handle("POST /api/sync/upload", s.requireAuth(s.handleUpload))
	mux.Handle("GET /api/sync/download", s.requireAuth(s.handleDownload))
	mux.Handle("POST /api/sync/preferences", s.requireAuth(s.handleSyncPreferences))

	mux.Handle("GET /api/tasks", s.requireAuth(s.handleListTasks))
	mux.Handle("POST /api/tasks", s.requireAuth(s.handleCreateTask))
	mux.Handle("GET /api/tasks/{id}", s.requireAuth(s.handleGetTask))
	mux.Handle("PUT /api/tasks/{id}", s.requireAuth(s.handleUpdateTask))
	mux.Handle("DELETE /api/tasks/{id}", s.requireAuth(s.handleDeleteTask))

	return s.withRequestID(s.withAccessLog(s.withRecover(mux)))
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		shutdownErr <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-shutdownErr
}
