// Package backend selects the storage implementation from config.
package backend

import (
	"fmt"

	"finledger/internal/config"
	"finledger/internal/storage"
	"finledger/internal/storage/memory"
	"finledger/internal/storage/sqlite"
)

func New(cfg *config.Config) (storage.Store, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		store, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
