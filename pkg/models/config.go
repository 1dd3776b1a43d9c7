package models

import "time"

type Config struct {
	Database Database `yaml:"database" mapstructure:"database"`
	Provider Provider `yaml:"provider" mapstructure:"provider"`
	Analysis Analysis `yaml:"analysis" mapstructure:"analysis"`
	Server   Server   `yaml:"server" mapstructure:"server"`
	Export   Export   `yaml:"export" mapstructure:"export"`
	Logging  Logging  `yaml:"logging" mapstructure:"logging"`
}

// Database selects the persistence backend.
type Database struct {
	Driver    string    `yaml:"driver" mapstructure:"driver"` // "memory", "file", "postgres", "snowflake"
	DSN       string    `yaml:"dsn" mapstructure:"dsn"`
	Path      string    `yaml:"path" mapstructure:"path"` // file store location
	Snowflake Snowflake `yaml:"snowflake" mapstructure:"snowflake"`
}

// Snowflake holds connection settings used when no DSN is given for the snowflake driver.
type Snowflake struct {
	Account   string `yaml:"account" mapstructure:"account"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
	Role      string `yaml:"role" mapstructure:"role"`
	Warehouse string `yaml:"warehouse" mapstructure:"warehouse"`
	Database  string `yaml:"database" mapstructure:"database"`
	Schema    string `yaml:"schema" mapstructure:"schema"`
}

// Provider selects and tunes the version control provider.
type Provider struct {
	Type           string        `yaml:"type" mapstructure:"type"` // "github" or "git"
	GitHubAPIURL   string        `yaml:"github_api_url" mapstructure:"github_api_url"`
	GitURLTemplate string        `yaml:"git_url_template" mapstructure:"git_url_template"` // e.g. "https://github.com/%s/%s.git"
	CacheDir       string        `yaml:"cache_dir" mapstructure:"cache_dir"`
	Sync           bool          `yaml:"sync" mapstructure:"sync"` // fetch before reading a cached clone
	CacheTTL       time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	CacheSize      int           `yaml:"cache_size" mapstructure:"cache_size"`
	MaxRetries     int           `yaml:"max_retries" mapstructure:"max_retries"`
}

// Analysis tunes the analysis engine.
type Analysis struct {
	KeepCount     int    `yaml:"keep_count" mapstructure:"keep_count"` // results kept per site
	Workers       int    `yaml:"workers" mapstructure:"workers"`
	I18nFormat    string `yaml:"i18n_format" mapstructure:"i18n_format"` // extension of translation files
	ContentSuffix string `yaml:"content_suffix" mapstructure:"content_suffix"`
}

type Server struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	APIKeyHash     string        `yaml:"api_key_hash" mapstructure:"api_key_hash"` // bcrypt hash, empty disables the check
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type Export struct {
	S3 S3 `yaml:"s3" mapstructure:"s3"`
}

// S3 configures the object store CSV exports are uploaded to.
type S3 struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Region    string `yaml:"region" mapstructure:"region"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

type Logging struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "text" or "json"
	Output string `yaml:"output" mapstructure:"output"` // "stdout", "stderr" or a file path
}
