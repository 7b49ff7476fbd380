package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"API_BASE_URL", "TG_TOKEN", "TG_CHAT_ID", "REFRESH_SCHEDULE", "ZENPULSE_CONFIG", "TIMEZONE", "API_TIMEOUT"} {
		t.Setenv(key, "")
	}
	unsetEnv(t, "PORT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, "@every 30s", cfg.Refresh.Schedule)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.ServerEnabled())
	assert.False(t, cfg.TelegramEnabled())
}

func TestEmptyPortDisablesServer(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ZENPULSE_CONFIG", "")
	t.Setenv("TG_TOKEN", "")
	t.Setenv("TIMEZONE", "")

	t.Setenv("PORT", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Server.Port)
	assert.False(t, cfg.ServerEnabled())

	t.Setenv("PORT", "9090")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.ServerEnabled())
}

// unsetEnv removes key for the rest of the test; t.Setenv restores it after.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "zenpulse.yaml")
	content := `
api:
  base_url: https://pulse.example.com/api
  timeout: 5s
session:
  tab_id: tab-42
refresh:
  schedule: "@every 1m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ZENPULSE_CONFIG", path)
	t.Setenv("API_BASE_URL", "http://ignored")
	t.Setenv("TG_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://pulse.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "tab-42", cfg.Session.TabID)
	assert.Equal(t, "@every 1m", cfg.Refresh.Schedule)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"empty base url", func(c *Config) { c.API.BaseURL = " " }, true},
		{"telegram without chat", func(c *Config) { c.Telegram.Token = "abc" }, true},
		{"telegram with chat", func(c *Config) { c.Telegram.Token = "abc"; c.Telegram.ChatID = 7 }, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.API.BaseURL = "http://localhost"
			c.API.Timeout = time.Second
			c.Session.Path = "s.db"
			c.Session.TabID = "t"
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir changes the working directory for the rest of the test and restores
// it afterwards (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
