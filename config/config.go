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

type Config struct {
	Binance BinanceConfig `mapstructure:"binance"`
	History HistoryConfig `mapstructure:"history"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Log     LogConfig     `mapstructure:"log"`
	Report  ReportConfig  `mapstructure:"report"`
}

type BinanceConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	APIKey            string        `mapstructure:"api_key"`
	SecretKey         string        `mapstructure:"secret_key"`
	PageSize          int           `mapstructure:"page_size"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`

	// CredentialsSource is "config" (api_key/secret_key above) or "ssm".
	CredentialsSource string    `mapstructure:"credentials_source"`
	SSM               SSMConfig `mapstructure:"ssm"`
}

// SSMConfig names the Parameter Store entries holding the API key pair.
type SSMConfig struct {
	APIKeyParameter    string        `mapstructure:"api_key_parameter"`
	SecretKeyParameter string        `mapstructure:"secret_key_parameter"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	Path       string `mapstructure:"path"`        // shared binary log
	ArchiveDir string `mapstructure:"archive_dir"` // per-symbol *.tar.bz2 archives
	ScanBatch  int    `mapstructure:"scan_batch"`
}

type SyncConfig struct {
	Workers    int           `mapstructure:"workers"`
	FailFast   bool          `mapstructure:"fail_fast"`   // abort the run on the first symbol error
	RetryDelay time.Duration `mapstructure:"retry_delay"` // pause before re-sending an empty-response request
	Daily      bool          `mapstructure:"daily"`       // re-run every UTC midnight
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type ReportConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	Driver     string         `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLitePath string         `mapstructure:"sqlite_path"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
}

// setDefaults registers every key; AutomaticEnv only overrides keys viper knows.
func setDefaults(v *viper.Viper) {
	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.timeout", 15*time.Second)
	v.SetDefault("binance.page_size", 500)
	v.SetDefault("binance.requests_per_minute", 1000)
	v.SetDefault("binance.api_key", "")
	v.SetDefault("binance.secret_key", "")
	v.SetDefault("binance.credentials_source", "config")
	v.SetDefault("binance.ssm.api_key_parameter", "")
	v.SetDefault("binance.ssm.secret_key_parameter", "")
	v.SetDefault("binance.ssm.timeout", 5*time.Second)

	v.SetDefault("history.path", "$HOME/.bitrader/history.dat")
	v.SetDefault("history.archive_dir", "$HOME/.bitrader/history")
	v.SetDefault("history.scan_batch", 1024)

	v.SetDefault("sync.workers", 6)
	v.SetDefault("sync.fail_fast", false)
	v.SetDefault("sync.retry_delay", 200*time.Millisecond)
	v.SetDefault("sync.daily", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.output_file", "")

	v.SetDefault("report.enabled", false)
	v.SetDefault("report.driver", "sqlite")
	v.SetDefault("report.sqlite_path", "$HOME/.bitrader/sync_report.db")
	v.SetDefault("report.postgres.host", "localhost")
	v.SetDefault("report.postgres.port", 5432)
	v.SetDefault("report.postgres.user", "postgres")
	v.SetDefault("report.postgres.password", "")
	v.SetDefault("report.postgres.password_parameter", "")
	v.SetDefault("report.postgres.dbname", "tradehistory")
	v.SetDefault("report.postgres.sslmode", "disable")
	v.SetDefault("report.postgres.timezone", "UTC")
}

// Load loads application configuration using Viper.
// It reads from config.yaml (the explicit path when given, otherwise the usual
// search paths) and overrides with environment variables. A missing config
// file is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tradehistory"))
		}
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., SYNC_WORKERS)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.History.Path = ExpandPath(cfg.History.Path)
	cfg.History.ArchiveDir = ExpandPath(cfg.History.ArchiveDir)
	cfg.Report.SQLitePath = ExpandPath(cfg.Report.SQLitePath)
	cfg.Log.OutputFile = ExpandPath(cfg.Log.OutputFile)

	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.History.Path == "":
		return errors.New("history.path is required")
	case c.Sync.Workers <= 0:
		return errors.New("sync.workers must be positive")
	case c.Binance.PageSize <= 0 || c.Binance.PageSize >= 1000:
		return errors.New("binance.page_size must be between 1 and 999")
	case c.Binance.RequestsPerMinute < 0:
		return errors.New("binance.requests_per_minute must not be negative")
	}

	switch c.Binance.CredentialsSource {
	case "", "config", "ssm":
	default:
		return fmt.Errorf("binance.credentials_source %q is not one of config, ssm", c.Binance.CredentialsSource)
	}

	if c.Report.Enabled {
		switch c.Report.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("report.driver %q is not one of sqlite, postgres", c.Report.Driver)
		}
	}
	return nil
}

// ExpandPath expands a leading "~" and any $VAR references.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = home + p[1:]
		}
	}
	return os.ExpandEnv(p)
}
