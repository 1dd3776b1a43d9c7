// Package config loads l10ntrack's settings from config.yaml, L10N_* environment
// variables, a .env file and command-line flags.
package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"l10ntrack/internal/common"
	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. L10N_DATABASE_DRIVER.
	EnvPrefix = "L10N"
	// ConfigEnv points at an explicit config file.
	ConfigEnv = "L10NTRACK_CONFIG"
)

// GetConfigPath returns the directory holding the user's config file.
func GetConfigPath() string {
	if configFile := os.Getenv(ConfigEnv); configFile != "" {
		return filepath.Dir(configFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".l10ntrack")
}

// GetConfigFile returns the user's config file path.
func GetConfigFile() string {
	if configFile := os.Getenv(ConfigEnv); configFile != "" {
		return filepath.Clean(configFile)
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

// Exists reports whether the user's config file is present.
func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *models.Config {
	return &models.Config{
		Database: models.Database{
			Driver: "file",
			Path:   filepath.Join(".l10ntrack", "store.json"),
		},
		Provider: models.Provider{
			Type:           "github",
			GitHubAPIURL:   "https://api.github.com",
			GitURLTemplate: "https://github.com/{owner}/{repo}.git",
			CacheDir:       filepath.Join(GetConfigPath(), "repos"),
			Sync:           true,
			CacheTTL:       10 * time.Minute,
			CacheSize:      512,
			MaxRetries:     3,
		},
		Analysis: models.Analysis{
			KeepCount:     10,
			Workers:       1,
			I18nFormat:    "toml",
			ContentSuffix: ".md",
		},
		Server: models.Server{
			Addr:           ":8080",
			RequestTimeout: 2 * time.Minute,
		},
		Export: models.Export{
			S3: models.S3{Region: "us-east-1", UseSSL: true},
		},
		Logging: models.Logging{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Loader wraps a viper instance so flags can be bound before loading.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader seeded with Defaults and environment overrides.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlag lets a command-line flag override key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return nil
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads configFile, or config.yaml from the working directory and
// GetConfigPath when configFile is empty. A missing default file is not an error.
func (l *Loader) Load(configFile string) (*models.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if configFile == "" {
		configFile = os.Getenv(ConfigEnv)
	}
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath(GetConfigPath())
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case stderrors.As(err, &notFound):
		case configFile != "" && stderrors.Is(err, os.ErrNotExist):
			return nil, errors.Wrap(err, errors.ErrCodeConfigNotFound, "config file not found").
				WithContext("path", configFile)
		default:
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file")
		}
	}

	var cfg models.Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}
	if err := DecryptConfigSecrets(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefault overrides the built-in default for key.
func (l *Loader) SetDefault(key string, value interface{}) {
	l.v.SetDefault(key, value)
}

// ConfigFileUsed returns the file the last Load read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load reads the configuration without flag bindings.
func Load(configFile string) (*models.Config, error) {
	return NewLoader().Load(configFile)
}

// Save writes cfg as YAML with secrets encrypted. An empty path means GetConfigFile.
func Save(cfg *models.Config, path string) error {
	if path == "" {
		path = GetConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), common.DirPermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create config directory")
	}

	out := *cfg
	if err := EncryptConfigSecrets(&out); err != nil {
		return err
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, common.FilePermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to write config file")
	}
	return nil
}

var (
	validDrivers   = map[string]bool{"file": true, "memory": true, "postgres": true, "snowflake": true}
	validProviders = map[string]bool{"github": true, "git": true}
	validFormats   = map[string]bool{"toml": true, "yaml": true, "yml": true}
	validLogFormat = map[string]bool{"text": true, "json": true}
)

// Validate rejects settings the rest of the program cannot act on.
func Validate(cfg *models.Config) error {
	switch {
	case !validDrivers[strings.ToLower(cfg.Database.Driver)]:
		return errors.ConfigError("database.driver must be file, memory, postgres or snowflake", "database.driver")
	case !validProviders[strings.ToLower(cfg.Provider.Type)]:
		return errors.ConfigError("provider.type must be github or git", "provider.type")
	case !validFormats[strings.ToLower(cfg.Analysis.I18nFormat)]:
		return errors.ConfigError("analysis.i18n_format must be toml or yaml", "analysis.i18n_format")
	case cfg.Analysis.Workers < 1:
		return errors.ConfigError("analysis.workers must be at least 1", "analysis.workers")
	case cfg.Provider.CacheSize < 0:
		return errors.ConfigError("provider.cache_size must not be negative", "provider.cache_size")
	case cfg.Provider.MaxRetries < 0:
		return errors.ConfigError("provider.max_retries must not be negative", "provider.max_retries")
	case !validLogFormat[strings.ToLower(cfg.Logging.Format)]:
		return errors.ConfigError("logging.format must be text or json", "logging.format")
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *models.Config) {
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.snowflake.account", "")
	v.SetDefault("database.snowflake.username", "")
	v.SetDefault("database.snowflake.password", "")
	v.SetDefault("database.snowflake.role", "")
	v.SetDefault("database.snowflake.warehouse", "")
	v.SetDefault("database.snowflake.database", "")
	v.SetDefault("database.snowflake.schema", "")

	v.SetDefault("provider.type", d.Provider.Type)
	v.SetDefault("provider.github_api_url", d.Provider.GitHubAPIURL)
	v.SetDefault("provider.git_url_template", d.Provider.GitURLTemplate)
	v.SetDefault("provider.cache_dir", d.Provider.CacheDir)
	v.SetDefault("provider.sync", d.Provider.Sync)
	v.SetDefault("provider.cache_ttl", d.Provider.CacheTTL)
	v.SetDefault("provider.cache_size", d.Provider.CacheSize)
	v.SetDefault("provider.max_retries", d.Provider.MaxRetries)

	v.SetDefault("analysis.keep_count", d.Analysis.KeepCount)
	v.SetDefault("analysis.workers", d.Analysis.Workers)
	v.SetDefault("analysis.i18n_format", d.Analysis.I18nFormat)
	v.SetDefault("analysis.content_suffix", d.Analysis.ContentSuffix)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.api_key_hash", d.Server.APIKeyHash)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.region", d.Export.S3.Region)
	v.SetDefault("export.s3.access_key", "")
	v.SetDefault("export.s3.secret_key", "")
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.use_ssl", d.Export.S3.UseSSL)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
}
