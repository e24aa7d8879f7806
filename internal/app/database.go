package app

import (
	"fmt"

	"github.com/colonyops/bflex/internal/core/config"
	"github.com/colonyops/bflex/internal/core/logging"
	"github.com/colonyops/bflex/internal/data/db"
	"github.com/colonyops/bflex/internal/data/stores"
)

// OpenDatabase opens the history database in cfg.DataDir. A corrupted file
// is moved aside and replaced with an empty one.
func OpenDatabase(cfg *config.Config) (*db.DB, error) {
	opts := db.OpenOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BusyTimeout:  cfg.Database.BusyTimeout,
	}

	database, err := db.Open(cfg.DataDir, opts)
	if err == nil {
		return database, nil
	}
	if !stores.IsCorruptionError(err) {
		return nil, fmt.Errorf("open database: %w", err)
	}

	logger := logging.Component("app")
	logger.Warn().Err(err).Str("data_dir", cfg.DataDir).Msg("history database corrupted, starting fresh")
	if err := stores.RecoverFromCorruption(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("recover database: %w", err)
	}

	database, err = db.Open(cfg.DataDir, opts)
	if err != nil {
		return nil, fmt.Errorf("open database after recovery: %w", err)
	}
	return database, nil
}
