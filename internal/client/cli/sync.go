package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/taskmate/internal/filex"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
	"github.com/spf13/cobra"
)

func readJSONFile(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("error parsing %s: %w", path, err)
	}
	return nil
}

func newPushCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "push <snapshot.json>",
		Short: "Replace the server state with a local snapshot",
		Long: `Upload a snapshot file. The server replaces all tasks and conversations
of the account with the snapshot's content in one transaction. Preferences are
replaced only when the file carries a "preferences" object.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap snapshot.Snapshot
			if err := readJSONFile(args[0], &snap); err != nil {
				return err
			}
			if err := a.authenticate(); err != nil {
				return err
			}

			res, err := a.api.Upload(cmd.Context(), &snap)
			if err != nil {
				return a.forgetOnUnauthorized(err)
			}
			fmt.Fprintf(a.out, "Uploaded %d tasks, %d conversations, %d messages\n",
				res.Tasks, res.Conversations, res.Messages)
			return nil
		},
	}
}

func newPullCommand(a *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the server state as a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(); err != nil {
				return err
			}
			snap, err := a.api.Download(cmd.Context())
			if err != nil {
				return a.forgetOnUnauthorized(err)
			}

			raw, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			raw = append(raw, '\n')

			if output == "" || output == "-" {
				_, err = a.out.Write(raw)
				return err
			}
			if err := filex.WriteAtomic(output, raw, 0o600, 0o700); err != nil {
				return fmt.Errorf("error writing %s: %w", output, err)
			}
			fmt.Fprintf(a.out, "Saved %d tasks and %d conversations to %s\n",
				len(snap.Tasks), len(snap.Conversations), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the snapshot to a file instead of stdout")
	return cmd
}

func newPrefsCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "prefs <prefs.json>",
		Short: "Merge local preferences with the server's",
		Long: `Send a JSON object of preferences. Keys stored on the server win over
local ones; keys only present locally are added. The merged set is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var local models.Preferences
			if err := readJSONFile(args[0], &local); err != nil {
				return err
			}
			if err := a.authenticate(); err != nil {
				return err
			}

			merged, err := a.api.SyncPreferences(cmd.Context(), local)
			if err != nil {
				return a.forgetOnUnauthorized(err)
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(merged)
		},
	}
}
