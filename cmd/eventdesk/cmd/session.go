package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/eventdesk/history"
	"github.com/jmcleod/eventdesk/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear the locally stored session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored session and location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openSessionStorage()
		if err != nil {
			return err
		}
		defer closeRepo()

		out := cmd.OutOrStdout()
		sessions := session.NewStore(repo, session.WithLogger(logger))
		if sess, ok := sessions.Read(); ok {
			fmt.Fprintf(out, "User:     %s <%s>\n", sess.FullName, sess.Email)
			fmt.Fprintf(out, "User ID:  %s\n", sess.UserID)
			fmt.Fprintf(out, "Role:     %s\n", sess.Role)
			fmt.Fprintf(out, "Since:    %s\n", sess.LoginTime.Format("2006-01-02 15:04:05 MST"))
		} else {
			fmt.Fprintln(out, "Not signed in")
		}
		hist := history.NewMemory(cfg.Shell.StartPath, history.WithStore(repo), history.WithLogger(logger))
		fmt.Fprintf(out, "Location: %s\n", hist.Location())
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Sign out by removing the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeRepo, err := openSessionStorage()
		if err != nil {
			return err
		}
		defer closeRepo()

		if err := session.NewStore(repo, session.WithLogger(logger)).Destroy(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionClearCmd)
}
