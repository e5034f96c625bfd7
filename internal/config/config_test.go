package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("COVERLANE_JWT_SECRET", "a-secret-long-enough-for-hmac")
	t.Setenv("COVERLANE_LISTEN_ADDR", ":9090")
	t.Setenv("COVERLANE_DATABASE_DRIVER", "sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddr)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigRejectsMissingSecret(t *testing.T) {
	t.Setenv("COVERLANE_JWT_SECRET", "")
	t.Setenv("COVERLANE_DATABASE_DRIVER", "sqlite")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("COVERLANE_JWT_SECRET", "a-secret-long-enough-for-hmac")
	t.Setenv("COVERLANE_DATABASE_DRIVER", "postgres")
	t.Setenv("COVERLANE_DATABASE_DSN", "")

	_, err := LoadConfig()
	require.Error(t, err)
}
