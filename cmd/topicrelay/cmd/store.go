package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/rickgao/topicrelay/internal/config"
	"github.com/rickgao/topicrelay/internal/database"
	"github.com/rickgao/topicrelay/internal/routes"
)

// openStore opens the configured routes backend. The returned func releases it.
// A read-only store never writes files or creates the schema.
func openStore(ctx context.Context, cfg *config.RelayConfig, readOnly bool, logger *slog.Logger) (routes.Store, func(), error) {
	switch cfg.Routes.Backend {
	case config.BackendPostgres:
		db := cfg.Database.Postgres
		logger.Info("connecting to database",
			"host", db.Host,
			"port", db.Port,
			"database", db.Name,
		)

		pool, err := database.Connect(ctx, db)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if !readOnly {
			if err := database.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return routes.NewPostgresStore(pool), pool.Close, nil

	default:
		var fs afero.Fs = afero.NewOsFs()
		if readOnly {
			fs = afero.NewReadOnlyFs(fs)
		}
		store := routes.NewFileStore(fs, cfg.Routes.Path)
		logger.Info("using route file", "path", store.Path(), "read_only", readOnly)
		return store, func() {}, nil
	}
}
