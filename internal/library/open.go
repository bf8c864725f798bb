package library

import (
	"context"
	"fmt"

	"sparkscan/internal/config"
	"sparkscan/internal/logging"
)

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, log *logging.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "json":
		return NewJSONStore(cfg.RecordsFile, cfg.Conflicts, log), nil
	case "sqlite":
		return OpenSQL(ctx, cfg.DSN, log)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
