package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmcleod/eventdesk/app"
	"github.com/jmcleod/eventdesk/client"
	"github.com/jmcleod/eventdesk/dialog"
	"github.com/jmcleod/eventdesk/history"
	"github.com/jmcleod/eventdesk/session"
)

var (
	shellBackendURL string
	shellAssumeYes  bool
	shellAccessible bool
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive terminal client",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("backend-url") {
			cfg.Shell.BackendURL = shellBackendURL
		}
		if flags.Changed("yes") {
			cfg.Shell.AssumeYes = shellAssumeYes
		}
		if flags.Changed("accessible") {
			cfg.Shell.Accessible = shellAccessible
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		repo, closeRepo, err := openSessionStorage()
		if err != nil {
			return err
		}
		defer closeRepo()

		sessions := session.NewStore(repo, session.WithLogger(logger))
		hist := history.NewMemory(cfg.Shell.StartPath, history.WithStore(repo), history.WithLogger(logger))

		// the shell and the prompts take turns on one line source
		in, out := dialog.NewLineReader(cmd.InOrStdin()), cmd.OutOrStdout()
		var (
			dlg      dialog.Dialog
			prompter app.Prompter
		)
		if cfg.Shell.AssumeYes {
			dlg = dialog.NewStatic(true, out)
		} else {
			_, tty := in.Terminal()
			p := dialog.NewPrompt(in, out, dialog.WithAccessible(cfg.Shell.Accessible || !tty))
			dlg, prompter = p, p
		}

		backendClient := client.New(cfg.Shell.BackendURL, sessions, client.WithLogger(logger))
		a, err := app.New(sessions, hist, backendClient, dlg, out,
			app.WithLogger(logger),
			app.WithMaxRedirects(cfg.Shell.MaxHops),
		)
		if err != nil {
			return err
		}
		defer a.Close()

		printBanner(out, "Shell")
		fmt.Fprintf(out, "Connected to %s. Type help for commands.\n", cfg.Shell.BackendURL)
		return app.NewShell(a, in, out, prompter).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().StringVar(&shellBackendURL, "backend-url", "", "Base URL of the REST backend (overrides shell.backend_url)")
	shellCmd.Flags().BoolVarP(&shellAssumeYes, "yes", "y", false, "Answer yes to every confirmation and print alerts as plain lines")
	shellCmd.Flags().BoolVar(&shellAccessible, "accessible", os.Getenv("ACCESSIBLE") != "", "Use line-based prompts instead of full-screen forms")
}
