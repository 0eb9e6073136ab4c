package config

import (
	"context"
	"fmt"
	"time"
)

// PostgresConfig defines the configuration for connecting to the report database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	// PasswordParameter, when set, names an SSM parameter holding the password.
	PasswordParameter string `mapstructure:"password_parameter"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the connection string for the configured database.
func (cfg *PostgresConfig) DSN() string {
	return cfg.dsn(cfg.DBName)
}

// ServerDSN returns a connection string for the maintenance "postgres"
// database, used to create the configured one.
func (cfg *PostgresConfig) ServerDSN() string {
	return cfg.dsn("postgres")
}

func (cfg *PostgresConfig) dsn(dbname string) string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbname, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

// ResolvePassword reads the password from Parameter Store when
// PasswordParameter is set. store may be nil to use the default AWS client.
func (cfg *PostgresConfig) ResolvePassword(ctx context.Context, store ParameterGetter) error {
	if cfg.PasswordParameter == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if store == nil {
		var err error
		if store, err = NewParameterStore(ctx); err != nil {
			return err
		}
	}
	pw, err := getParameterStoreValue(ctx, store, cfg.PasswordParameter)
	if err != nil {
		return err
	}
	cfg.Password = pw
	return nil
}
