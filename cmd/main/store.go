package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/CTAG07/graph-composer/pkg/corpus"
)

// openStore opens the configured database, makes sure the schema exists and
// returns a ready corpus store. The caller closes both the store and the db.
func openStore(config *ServerConfig, logger *slog.Logger) (*sql.DB, *corpus.Store, error) {
	if config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := initDB(config.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err = corpus.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup corpus schema: %w", err)
	}

	if err = setupAuthSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup auth schema: %w", err)
	}

	store, err := corpus.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("error creating corpus store: %w", err)
	}
	store.SetLogger(logger)

	logger.Debug("Database opened", "driver", driverName, "path", config.DatabasePath)
	return db, store, nil
}
