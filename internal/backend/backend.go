// Package backend opens the configured persistence provider.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/marinagate/internal/config"
	"github.com/example/marinagate/internal/persistence"
	"github.com/example/marinagate/internal/persistence/rest"
	"github.com/example/marinagate/internal/persistence/sqlite"
)

// restRetries is the number of retries for idempotent REST calls.
const restRetries = 2

// Open returns the store selected by cfg.Backend. SQLite databases are
// migrated before use; an unreachable REST backend is only logged.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case config.BackendREST:
		client, err := rest.New(rest.Config{
			BaseURL:    cfg.RESTURL,
			APIKey:     cfg.RESTAPIKey,
			Timeout:    cfg.RESTTimeout,
			RetryCount: restRetries,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("rest backend: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "rest backend not reachable at startup", "error", err)
		}
		return client, nil
	case config.BackendSQLite, "":
		storage, err := sqlite.Open(sqlite.DefaultConfig(cfg.SQLiteDSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := storage.Migrate(ctx, logger); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
