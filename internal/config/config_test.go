package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clubsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Crawler.Workers)
	require.Equal(t, "sqlite", cfg.DB.Driver)
	require.Equal(t, "data/club.db", cfg.DB.Path)
	require.False(t, cfg.Metrics.Enabled)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
discord:
  token: secret-token
  guild_id: "668514155866062899"
crawler:
  workers: 3
  pin_labels: ["📌", "pushpin"]
db:
  driver: postgres
  dsn: postgres://localhost/club
metrics:
  enabled: true
  addr: ":9200"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "secret-token", cfg.Discord.Token)
	require.Equal(t, "668514155866062899", cfg.Discord.GuildID)
	require.Equal(t, 3, cfg.Crawler.Workers)
	require.Equal(t, []string{"📌", "pushpin"}, cfg.Crawler.PinLabels)
	require.Equal(t, "postgres", cfg.DB.Driver)
	require.Equal(t, ":9200", cfg.Metrics.Addr)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "zero workers",
			body: "crawler:\n  workers: 0\n",
			want: "crawler.workers",
		},
		{
			name: "postgres without dsn",
			body: "db:\n  driver: postgres\n",
			want: "db.dsn",
		},
		{
			name: "unknown driver",
			body: "db:\n  driver: mongodb\n",
			want: "db.driver",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
