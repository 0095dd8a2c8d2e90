package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/client/client"
	"github.com/dmitrijs2005/taskmate/internal/client/config"
	"github.com/dmitrijs2005/taskmate/internal/client/session"
	"github.com/spf13/cobra"
)

// ErrNotLoggedIn is returned by commands that need a session when no token
// is stored.
var ErrNotLoggedIn = errors.New("not logged in, run \"taskmate login\" first")

type App struct {
	config config.Config
	api    client.Client
	tokens session.Store

	in  io.Reader
	out io.Writer

	// overridable in tests
	newClient func(cfg config.Config) client.Client
	newStore  func(cfg config.Config) session.Store
}

func NewApp(in io.Reader, out io.Writer) *App {
	a := &App{
		in:  in,
		out: out,
		newClient: func(cfg config.Config) client.Client {
			return client.NewHTTPClient(cfg.ServerURL, cfg.Timeout)
		},
		newStore: func(cfg config.Config) session.Store {
			return session.NewFileStore(cfg.TokenFile)
		},
	}
	a.config.LoadDefaults()
	return a
}

type globalFlags struct {
	configFile string
	server     string
	tokenFile  string
	timeout    time.Duration
}

// setup applies the config file and then any flags the user set, and
// builds the API client and token store.
func (a *App) setup(cmd *cobra.Command, g *globalFlags) error {
	if g.configFile != "" {
		if err := a.config.LoadFile(g.configFile); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		a.config.ServerURL = g.server
	}
	if flags.Changed("token-file") {
		a.config.TokenFile = g.tokenFile
	}
	if flags.Changed("timeout") {
		a.config.Timeout = g.timeout
	}

	a.api = a.newClient(a.config)
	a.tokens = a.newStore(a.config)
	return nil
}

// authenticate loads the stored token into the client.
func (a *App) authenticate() error {
	token, err := a.tokens.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return ErrNotLoggedIn
	}
	a.api.SetToken(token)
	return nil
}

// forgetOnUnauthorized drops a token the server no longer accepts.
func (a *App) forgetOnUnauthorized(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		_ = a.tokens.Clear()
		return fmt.Errorf("%w: session expired, please log in again", err)
	}
	return err
}

// Execute runs the CLI with args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := NewRootCommand(a)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
