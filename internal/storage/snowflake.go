package storage

import (
	"github.com/snowflakedb/gosnowflake"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

// SnowflakeDSN builds a connection string from discrete settings.
func SnowflakeDSN(cfg models.Snowflake) (string, error) {
	switch {
	case cfg.Account == "":
		return "", errors.ConfigError("snowflake account is required", "database.snowflake.account")
	case cfg.Username == "":
		return "", errors.ConfigError("snowflake username is required", "database.snowflake.username")
	case cfg.Password == "":
		return "", errors.ConfigError("snowflake password is required", "database.snowflake.password")
	}

	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.Username,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid snowflake settings")
	}
	return dsn, nil
}
