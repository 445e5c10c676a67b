package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detaltap/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.PageSize)
	assert.Equal(t, "AZN", cfg.Currency)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "memory", cfg.SessionBackend)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "detaltap.yaml")
	yml := "page_size: 7\nadmin_ids: [11, 12]\nsession_ttl: 2h\ncurrency: EUR\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CURRENCY", "AZN")
	t.Setenv("SESSION_BACKEND", "sqlite")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.PageSize)
	assert.Equal(t, []int64{11, 12}, cfg.AdminIDs)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "AZN", cfg.Currency, "env overrides file")
	assert.Equal(t, "sqlite", cfg.SessionBackend)
	assert.Equal(t, int64(11), cfg.OperatorID())
}

func TestAdminIDsFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ADMIN_IDS", " 100, 200 ,")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, cfg.AdminIDs)

	t.Setenv("ADMIN_IDS", "100,abc")
	_, err = config.Load()
	require.Error(t, err)
}

func TestValidateRejectsWebhookWithoutSecret(t *testing.T) {
	cfg := config.Defaults()
	cfg.BotMode = "webhook"
	require.Error(t, cfg.Validate())

	cfg.WebhookSecret = "s3cret"
	require.Error(t, cfg.Validate(), "webhook url still missing")

	cfg.WebhookURL = "https://bot.example.com/telegram/webhook"
	require.NoError(t, cfg.Validate())

	cfg.PageSize = 0
	require.Error(t, cfg.Validate())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
