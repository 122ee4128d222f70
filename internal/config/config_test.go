package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	for _, key := range []string{"HTTP_PORT", "API_PREFIX", "DATABASE_PATH", "ADMIN_PASSWORD_HASH", "MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}
	t.Setenv("ALLOW_NEGATIVE_STOCK", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, "inventory.db", cfg.DatabasePath)
	assert.True(t, cfg.AllowNegativeStock)
	assert.False(t, cfg.AuthEnabled())
	assert.Equal(t, int64(200<<20), cfg.MaxUploadBytes())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("API_PREFIX", "v1/")
	t.Setenv("ALLOW_NEGATIVE_STOCK", "false")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "/v1", cfg.APIPrefix)
	assert.False(t, cfg.AllowNegativeStock)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "console", cfg.Logger.Encoding)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadInvalidPortFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_PORT", "http")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_path: shop.db\nbackup_dir: /var/backups/shop\nmax_upload_mb: 16\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BACKUP_DIR", "override")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "shop.db", cfg.DatabasePath)
	assert.Equal(t, "override", cfg.BackupDir)
	assert.Equal(t, 16, cfg.MaxUploadMB)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAuthRequiresPrivateSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	t.Setenv("SECRET", "")
	_, err := Load()
	assert.Error(t, err, "unset secret falls back to the built-in one")

	t.Setenv("SECRET", "dev_secret")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("SECRET", "s0me-long-private-value")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AuthEnabled())
	assert.Equal(t, "s0me-long-private-value", cfg.Secret)
}

func TestLoadAuthRejectsBlankSecretFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("admin_password_hash: x\nsecret: \"\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	t.Setenv("SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
