package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guild-helper-bot-go/internal/config"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
platforms:
  discord:
    token: "discord-token"
    guild_id: "1344212981038317000"
completion:
  api_key: "sk-test"
commands:
  help:
    cooldown:
      scope: guild
      duration: 15m
  ask:
    cooldown:
      scope: user
      duration: 30s
links:
  - name: Docs
    url: https://example.com/docs
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv blanks the bound variables; viper ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DISCORD_TOKEN", "GUILD_ID", "TELEGRAM_TOKEN", "COMPLETION_API_KEY", "MISTRAL_API_KEY",
		"COMPLETION_ENDPOINT", "HELPER_ROLE_ID", "WELCOME_CHANNEL_ID", "TICKET_CATEGORY_ID",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("should load file with defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := config.LoadConfig(writeConfig(t, baseYAML))
		require.NoError(t, err)

		require.Equal(t, "!", cfg.Bot.Prefix)
		require.True(t, cfg.Platforms.Discord.Enabled)
		require.Equal(t, "1344212981038317000", cfg.Platforms.Discord.GuildID)
		require.Equal(t, "https://api.mistral.ai/v1/chat/completions", cfg.Completion.Endpoint)
		require.Equal(t, "{{prompt}}", cfg.Completion.Placeholder)
		require.Equal(t, time.Minute, cfg.Completion.Timeout)
		require.Equal(t, "guild", cfg.Command("help").Cooldown.Scope)
		require.Equal(t, 15*time.Minute, cfg.Command("help").Cooldown.Duration)
		require.Equal(t, 30*time.Second, cfg.Command("ask").Cooldown.Duration)
		require.Zero(t, cfg.Command("links").Cooldown.Duration)
		require.Equal(t, []config.LinkConfig{{Name: "Docs", URL: "https://example.com/docs"}}, cfg.Links)
		require.Equal(t, "en", cfg.I18n.DefaultLanguage)
	})

	t.Run("should prefer environment variables", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DISCORD_TOKEN", "env-token")
		t.Setenv("GUILD_ID", "42")
		t.Setenv("MISTRAL_API_KEY", "sk-env")
		t.Setenv("HELPER_ROLE_ID", "777")

		cfg, err := config.LoadConfig(writeConfig(t, baseYAML))
		require.NoError(t, err)

		require.Equal(t, "env-token", cfg.Platforms.Discord.Token)
		require.Equal(t, "42", cfg.Platforms.Discord.GuildID)
		require.Equal(t, "sk-env", cfg.Completion.APIKey)
		require.Equal(t, "777", cfg.Bot.HelperRoleID)
	})

	t.Run("should fail on missing file", func(t *testing.T) {
		_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to read config file")
	})
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing discord token",
			yaml: `
platforms: {discord: {guild_id: "1"}}
completion: {api_key: k}
links: [{name: a, url: b}]
`,
			wantErr: "discord token is required",
		},
		{
			name: "guild id not numeric",
			yaml: `
platforms: {discord: {token: t, guild_id: "abc"}}
completion: {api_key: k}
links: [{name: a, url: b}]
`,
			wantErr: "guild id must be a valid u64",
		},
		{
			name: "missing api key",
			yaml: `
platforms: {discord: {token: t, guild_id: "1"}}
links: [{name: a, url: b}]
`,
			wantErr: "completion api key is required",
		},
		{
			name: "missing links",
			yaml: `
platforms: {discord: {token: t, guild_id: "1"}}
completion: {api_key: k}
`,
			wantErr: "at least one link is required",
		},
		{
			name: "telegram without token",
			yaml: `
platforms: {discord: {enabled: false}, telegram: {enabled: true}}
completion: {api_key: k}
links: [{name: a, url: b}]
`,
			wantErr: "telegram token is required",
		},
		{
			name: "unknown scope",
			yaml: `
platforms: {discord: {token: t, guild_id: "1"}}
completion: {api_key: k}
links: [{name: a, url: b}]
commands: {help: {cooldown: {scope: planet, duration: 1m}}}
`,
			wantErr: "unknown cooldown scope",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := config.LoadConfig(writeConfig(t, tt.yaml))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
