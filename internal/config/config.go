// Package config loads service configuration from the environment and an
// optional yaml file.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds everything the service needs to start.
type Config struct {
	LogLevel   string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	JWTSecret  string `mapstructure:"jwt_secret" validate:"required,min=16"`

	Database struct {
		Driver          string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
		DSN             string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
		MaxOpenConns    int    `mapstructure:"max_open_conns" validate:"min=0"`
		MaxIdleConns    int    `mapstructure:"max_idle_conns" validate:"min=0"`
		ConnMaxLifetime int    `mapstructure:"conn_max_lifetime" validate:"min=0"`
	} `mapstructure:"database"`
}

// LoadConfig reads configuration from COVERLANE_* environment variables and,
// when present, a coverlane.yaml file in the working directory or /etc/coverlane.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("coverlane")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/coverlane")
	v.SetEnvPrefix("COVERLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults register the keys so AutomaticEnv can resolve them
	// during Unmarshal.
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", 0)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
