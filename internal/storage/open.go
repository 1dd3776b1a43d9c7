package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// Open builds the store selected by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg models.Database) (Store, error) {
	switch cfg.Driver {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(".l10ntrack", "store.json")
		}
		return NewFileStore(path)

	case "memory":
		return NewMemoryStore(), nil

	case "postgres", "pgx":
		if cfg.DSN == "" {
			return nil, errors.ConfigError("database.dsn is required for postgres", "database.dsn")
		}
		return openMigrated(ctx, DialectPostgres, cfg.DSN)

	case "snowflake":
		dsn := cfg.DSN
		if dsn == "" {
			var err error
			if dsn, err = SnowflakeDSN(cfg.Snowflake); err != nil {
				return nil, err
			}
		}
		return openMigrated(ctx, DialectSnowflake, dsn)

	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown database driver %q", cfg.Driver), "database.driver")
	}
}

func openMigrated(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	store, err := OpenSQL(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
