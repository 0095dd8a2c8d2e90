package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCommand(a *App) *cobra.Command {
	var idToken string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Google ID token",
		Long: `Exchange a Google ID token for a taskmate session.

Without --id-token the token is read from stdin (without echo on a terminal).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if idToken == "" {
				var err error
				idToken, err = GetSecret(a.in, "ID token", a.out)
				if err != nil {
					return fmt.Errorf("error reading token: %w", err)
				}
			}
			if idToken == "" {
				return errors.New("an ID token is required")
			}

			s, err := a.api.Login(cmd.Context(), idToken)
			if err != nil {
				return err
			}
			if err := a.tokens.Save(s.Token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s <%s>\n", s.User.Name, s.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&idToken, "id-token", "", "Google ID token")
	return cmd
}

func newLogoutCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(); err != nil {
				if errors.Is(err, ErrNotLoggedIn) {
					fmt.Fprintln(a.out, "Not logged in")
					return nil
				}
				return err
			}
			// the local token goes away even when the server is unreachable
			logoutErr := a.api.Logout(cmd.Context())
			if err := a.tokens.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			if logoutErr != nil {
				fmt.Fprintf(a.out, "warning: server logout failed: %v\n", logoutErr)
			}
			return nil
		},
	}
}

func newWhoamiCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(); err != nil {
				return err
			}
			u, err := a.api.Me(cmd.Context())
			if err != nil {
				return a.forgetOnUnauthorized(err)
			}
			fmt.Fprintf(a.out, "%s <%s> (id %s)\n", u.Name, u.Email, u.ID)
			return nil
		},
	}
}
