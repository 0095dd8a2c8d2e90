package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the command tree for a.
func NewRootCommand(a *App) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "taskmate",
		Short:         "Sync tasks, conversations and preferences with a taskmate server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, g)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.out)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configFile, "config", "c", "", "config file (.json, .yaml)")
	pf.StringVarP(&g.server, "server", "a", a.config.ServerURL, "server base URL")
	pf.StringVar(&g.tokenFile, "token-file", a.config.TokenFile, "where the session token is stored")
	pf.DurationVar(&g.timeout, "timeout", a.config.Timeout, "request timeout")

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newPushCommand(a),
		newPullCommand(a),
		newPrefsCommand(a),
	)
	return root
}
