package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/eventdesk/internal/config"
	"github.com/jmcleod/eventdesk/storage"
	bboltstorage "github.com/jmcleod/eventdesk/storage/bbolt"
	"github.com/jmcleod/eventdesk/storage/memory"
	"github.com/jmcleod/eventdesk/storage/postgres"
)

type closeFunc func() error

func noClose() error { return nil }

var boltOptions = &bbolt.Options{Timeout: time.Second}

func ensureDataDir() error {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// openBackendStorage opens the repository selected by backend.driver.
func openBackendStorage(ctx context.Context) (storage.Repository, closeFunc, error) {
	switch cfg.Backend.Driver {
	case config.DriverMemory:
		return memory.NewRepository(), noClose, nil
	case config.DriverPostgres:
		repo, err := postgres.NewRepositoryFromDSN(ctx, cfg.Backend.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres storage: %w", err)
		}
		return repo, repo.Close, nil
	}
	if err := ensureDataDir(); err != nil {
		return nil, nil, err
	}
	repo, err := bboltstorage.NewRepositoryFromFile(cfg.BackendDBPath(), boltOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open backend storage: %w", err)
	}
	return repo, repo.Close, nil
}

// openSessionStorage opens the shell's local state: session and location.
func openSessionStorage() (storage.Repository, closeFunc, error) {
	if cfg.Shell.SessionDriver == config.DriverMemory {
		return memory.NewRepository(), noClose, nil
	}
	if err := ensureDataDir(); err != nil {
		return nil, nil, err
	}
	repo, err := bboltstorage.NewRepositoryFromFile(cfg.SessionDBPath(), boltOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
	}
	return repo, repo.Close, nil
}
