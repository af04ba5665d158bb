package repository

import (
	"context"
	"fmt"

	"github.com/okian/solodex/internal/config"
)

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileStore(cfg.DataDir, opts...)
	case config.BackendMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, opts...)
	case config.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath, opts...)
	default:
		return nil, fmt.Errorf("%w %q", config.ErrUnknownBackend, cfg.Backend)
	}
}
