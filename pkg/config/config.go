// Package config handles Janus configuration loading.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// file <base>/conf/janus.yaml and JANUS_* environment variables (dots in key
// names become underscores, so server.port is JANUS_SERVER_PORT). The base
// directory is JANUS_PATH, or ~/janus when unset. A missing config file is not
// an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "JANUS"

// Publish backends.
const (
	PublishNone  = "none"
	PublishLocal = "local"
	PublishS3    = "s3"
)

// Config holds all configuration values for Janus.
type Config struct {
	// BasePath is the Janus home directory holding conf/ and, by default, data/.
	BasePath string

	// DataPath holds one directory per maintenance id.
	DataPath string

	// DistPath overrides where scripts are written. When empty, scripts go to
	// <DataPath>/<maintenance id>/dist.
	DistPath string

	Log      LogConfig
	Server   ServerConfig
	Render   RenderConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Publish  PublishConfig
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level      string
	Format     string // console or json
	File       string // optional, rotated with lumberjack
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port           string
	APIKey         string
	AllowedOrigins []string
	// RateLimit is the number of API requests allowed per client in each
	// RateWindow. Zero disables rate limiting.
	RateLimit  int64
	RateWindow time.Duration
}

type RenderConfig struct {
	// Workers bounds how many operators render concurrently.
	Workers int
}

type DatabaseConfig struct {
	// URL is the PostgreSQL connection string for run history. Empty keeps
	// history in memory.
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

type PublishConfig struct {
	Backend   string
	LocalPath string
	S3        S3Config
}

type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// BasePath returns JANUS_PATH, or ~/janus when unset.
func BasePath() string {
	if p := os.Getenv("JANUS_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "janus"
	}
	return filepath.Join(home, "janus")
}

// DefaultFile returns the default config file location.
func DefaultFile() string {
	return filepath.Join(BasePath(), "conf", "janus.yaml")
}

func setDefaults(v *viper.Viper, base string) {
	v.SetDefault("data_path", filepath.Join(base, "data"))
	v.SetDefault("dist_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("server.port", "8084")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.allowed_origins", "http://localhost:3000")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_window", "1m")

	v.SetDefault("render.workers", 4)

	v.SetDefault("database.url", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.ttl", "10m")

	v.SetDefault("publish.backend", PublishNone)
	v.SetDefault("publish.local_path", filepath.Join(base, "published"))
	v.SetDefault("publish.s3.bucket", "")
	v.SetDefault("publish.s3.region", "us-east-1")
	v.SetDefault("publish.s3.prefix", "janus")
	v.SetDefault("publish.s3.endpoint", "")
}

// Load reads configuration from file (DefaultFile when empty), environment
// variables and defaults.
func Load(file string) (*Config, error) {
	base := BasePath()
	if file == "" {
		file = DefaultFile()
	}

	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, base)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to read %s: %w", file, err)
		}
	}

	cfg := &Config{
		BasePath: base,
		DataPath: v.GetString("data_path"),
		DistPath: v.GetString("dist_path"),
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
			Compress:   v.GetBool("log.compress"),
		},
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			APIKey:         v.GetString("server.api_key"),
			AllowedOrigins: splitList(v.Get("server.allowed_origins")),
			RateLimit:      v.GetInt64("server.rate_limit"),
			RateWindow:     v.GetDuration("server.rate_window"),
		},
		Render: RenderConfig{
			Workers: v.GetInt("render.workers"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Publish: PublishConfig{
			Backend:   strings.ToLower(v.GetString("publish.backend")),
			LocalPath: v.GetString("publish.local_path"),
			S3: S3Config{
				Bucket:   v.GetString("publish.s3.bucket"),
				Region:   v.GetString("publish.s3.region"),
				Prefix:   v.GetString("publish.s3.prefix"),
				Endpoint: v.GetString("publish.s3.endpoint"),
			},
		},
	}
	return cfg, nil
}

// splitList accepts either a YAML list or a comma separated string.
func splitList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks that all configuration values are usable. Every problem is
// reported in one error.
func (c *Config) Validate() error {
	var errs []string

	if c.DataPath == "" {
		errs = append(errs, "data_path is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be console or json, got %q", c.Log.Format))
	}
	if c.Server.Port == "" {
		errs = append(errs, "server.port is required")
	}
	if c.Server.APIKey != "" && len(c.Server.APIKey) < 16 {
		errs = append(errs, "server.api_key must be at least 16 characters")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		errs = append(errs, "server.rate_window must be positive when rate limiting is enabled")
	}
	if c.Render.Workers <= 0 {
		errs = append(errs, "render.workers must be positive")
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, "redis.ttl must not be negative")
	}
	switch c.Publish.Backend {
	case PublishNone:
	case PublishLocal:
		if c.Publish.LocalPath == "" {
			errs = append(errs, "publish.local_path is required for the local backend")
		}
	case PublishS3:
		if c.Publish.S3.Bucket == "" {
			errs = append(errs, "publish.s3.bucket is required for the s3 backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("publish.backend must be none, local or s3, got %q", c.Publish.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// MaintenanceDir returns the directory holding the documents of a maintenance.
func (c *Config) MaintenanceDir(id string) string {
	return filepath.Join(c.DataPath, id)
}

// DistDir returns where the scripts of a maintenance are written.
func (c *Config) DistDir(id string) string {
	if c.DistPath != "" {
		return filepath.Join(c.DistPath, id)
	}
	return filepath.Join(c.MaintenanceDir(id), "dist")
}
