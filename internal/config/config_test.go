package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())

	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Address)
	assert.Equal(t, uint(3), cfg.RetryMax)
	assert.Equal(t, time.Second, cfg.RetryInitialDelay)
	assert.Equal(t, 10*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, time.Duration(0), cfg.SyncInterval)
	assert.Equal(t, "dummy", cfg.CRMClientID)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.MailEnabled())
	assert.Error(t, cfg.RequireDatabase())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/crm")
	t.Setenv("CRM_BASE_URL", "https://crm.example.com/")
	t.Setenv("RETRY_MAX", "5")
	t.Setenv("RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("SYNC_INTERVAL", "1m")
	t.Setenv("SYNC_ON_INSERT", "true")
	t.Setenv("MAIL_HOST", "smtp.example.com")
	t.Setenv("MAIL_TO", "ops@example.com, dev@example.com")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load(viper.New())

	require.NoError(t, err)
	assert.NoError(t, cfg.RequireDatabase())
	assert.Equal(t, "https://crm.example.com", cfg.CRMBaseURL)
	assert.Equal(t, uint(5), cfg.RetryMax)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryInitialDelay)
	assert.Equal(t, time.Minute, cfg.SyncInterval)
	assert.True(t, cfg.SyncOnInsert)
	assert.Equal(t, []string{"ops@example.com", "dev@example.com"}, cfg.MailTo)
	assert.True(t, cfg.MailEnabled())
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("RETRY_MAX", "-1")
	_, err := Load(viper.New())
	assert.Error(t, err)

	t.Setenv("RETRY_MAX", "3")
	t.Setenv("LOG_FORMAT", "xml")
	_, err = Load(viper.New())
	assert.ErrorContains(t, err, "LOG_FORMAT")
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CRM_CLIENT_ID=from-file\nCRM_CLIENT_SECRET=file-secret\n"), 0o600))
	t.Setenv("CRM_CLIENT_ID", "from-env")
	t.Setenv("CRM_CLIENT_SECRET", "")
	os.Unsetenv("CRM_CLIENT_SECRET")

	LoadDotEnv(path)
	t.Cleanup(func() { os.Unsetenv("CRM_CLIENT_SECRET") })

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.CRMClientID)
	assert.Equal(t, "file-secret", cfg.CRMClientSecret)
}
