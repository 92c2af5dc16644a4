package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "memory", cfg.RateLimit.Store)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.SweepInterval)
	assert.Equal(t, 5, cfg.RateLimit.AdminAuth.Limit)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.AdminAuth.Window)
	assert.Equal(t, "local", cfg.Clicks.Dispatcher)
	assert.Equal(t, time.Minute, cfg.Attribution.PartnerRefresh)
	assert.False(t, cfg.App.IsProduction())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := chdirTemp(t)
	yaml := []byte("admin:\n  token: from-yaml\nrate_limit:\n  api:\n    limit: 10\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("ADMIN_TOKEN", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Admin.Token)
	assert.Equal(t, 10, cfg.RateLimit.API.Limit)
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RATE_LIMIT_STORE", "memcached")

	_, err := Load()
	require.Error(t, err)
}
