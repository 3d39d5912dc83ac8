package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dataDir, "agentledger.db"), cfg.DatabasePath)
	assert.Equal(t, "0 0 1 7 *", cfg.CycleResetSchedule)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.False(t, cfg.ReportingEnabled())
	assert.False(t, cfg.NotificationsEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadRejectsPartialDiscordConfig(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_CHANNEL_ID", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	assert.Error(t, err)
}
