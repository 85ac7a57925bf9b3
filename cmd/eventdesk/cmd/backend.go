package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/eventdesk/backend"
	"github.com/jmcleod/eventdesk/internal/util"
)

const apiPrefix = "/api/v1"

var listenAddr string

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Start the development REST backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenAddr != "" {
			cfg.Backend.Listen = listenAddr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		repo, closeRepo, err := openBackendStorage(ctx)
		if err != nil {
			return err
		}
		defer closeRepo()

		kdf, err := util.Argon2idProfile(cfg.Backend.KDFProfile)
		if err != nil {
			return err
		}
		a, err := backend.New(repo,
			backend.WithLogger(logger),
			backend.WithPasswordParams(kdf),
			backend.WithDocsBaseURL(apiPrefix),
			backend.WithAlertFunc(func(ev backend.AlertEvent) {
				logger.Warn("security alert", "type", ev.Type, "message", ev.Message, "count", ev.Count, "threshold", ev.Threshold)
			}),
		)
		if err != nil {
			return err
		}
		if err := bootstrapAdmin(cmd, a); err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount(apiPrefix, a.Router())

		server := &http.Server{
			Addr:              cfg.Backend.Listen,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		out := cmd.OutOrStdout()
		printBanner(out, "Backend")
		fmt.Fprintf(out, "Starting backend on %s (storage: %s)...\n", cfg.Backend.Listen, cfg.Backend.Driver)
		fmt.Fprintf(out, "API docs at http://localhost%s%s/docs\n", cfg.Backend.Listen, apiPrefix)

		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nShutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// bootstrapAdmin creates the configured administrator on first start. A
// missing password is generated and printed once.
func bootstrapAdmin(cmd *cobra.Command, a *backend.API) error {
	if cfg.Backend.AdminEmail == "" {
		logger.Warn("no admin email configured, skipping admin bootstrap")
		return nil
	}
	password := cfg.Backend.AdminPassword
	generated := password == ""
	if generated {
		var err error
		if password, err = util.RandomChars(16); err != nil {
			return err
		}
	}
	created, err := a.EnsureAdmin(cfg.Backend.AdminName, cfg.Backend.AdminEmail, password)
	if err != nil {
		return err
	}
	if created {
		logger.Info("admin account created", slog.String("email", cfg.Backend.AdminEmail))
		if generated {
			fmt.Fprintf(cmd.OutOrStdout(), "Generated admin password for %s: %s\n", cfg.Backend.AdminEmail, password)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(backendCmd)
	backendCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Address to listen on (overrides backend.listen)")
}
