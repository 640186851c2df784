package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig                `mapstructure:"bot"`
	Platforms  PlatformsConfig          `mapstructure:"platforms"`
	Completion CompletionConfig         `mapstructure:"completion"`
	Commands   map[string]CommandConfig `mapstructure:"commands"`
	Tickets    TicketsConfig            `mapstructure:"tickets"`
	Links      []LinkConfig             `mapstructure:"links"`
	RateLimit  RateLimitConfig          `mapstructure:"rate_limit"`
	Logging    LoggingConfig            `mapstructure:"logging"`
	Monitoring MonitoringConfig         `mapstructure:"monitoring"`
	I18n       I18nConfig               `mapstructure:"i18n"`
}

type BotConfig struct {
	Prefix           string `mapstructure:"prefix"`
	HelperRoleID     string `mapstructure:"helper_role_id"`
	WelcomeChannelID string `mapstructure:"welcome_channel_id"`
}

type PlatformsConfig struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type DiscordConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	GuildID string `mapstructure:"guild_id"`
}

type TelegramConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Token         string `mapstructure:"token"`
	UpdateTimeout int    `mapstructure:"update_timeout"`
	HelperMention string `mapstructure:"helper_mention"`
}

// CompletionConfig describes the remote text-completion endpoint.
type CompletionConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	APIKey          string        `mapstructure:"api_key"`
	TemplatePath    string        `mapstructure:"template_path"`
	Placeholder     string        `mapstructure:"placeholder"`
	PromptPath      string        `mapstructure:"prompt_path"`
	Timeout         time.Duration `mapstructure:"timeout"`
	StructuredParse bool          `mapstructure:"structured_parse"`
}

type CommandConfig struct {
	Cooldown CooldownConfig `mapstructure:"cooldown"`
	Duration time.Duration  `mapstructure:"duration"`
}

type CooldownConfig struct {
	Scope    string        `mapstructure:"scope"`
	Duration time.Duration `mapstructure:"duration"`
}

type TicketsConfig struct {
	CategoryID string `mapstructure:"category_id"`
	NamePrefix string `mapstructure:"name_prefix"`
}

type LinkConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

// Command returns the settings for a command, or the zero value when the
// command has none.
func (c *Config) Command(name string) CommandConfig {
	return c.Commands[name]
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Environment overrides, named after the variables the bot has always used
	v.BindEnv("platforms.discord.token", "DISCORD_TOKEN")
	v.BindEnv("platforms.discord.guild_id", "GUILD_ID")
	v.BindEnv("platforms.telegram.token", "TELEGRAM_TOKEN")
	v.BindEnv("completion.api_key", "COMPLETION_API_KEY", "MISTRAL_API_KEY")
	v.BindEnv("completion.endpoint", "COMPLETION_ENDPOINT")
	v.BindEnv("bot.helper_role_id", "HELPER_ROLE_ID")
	v.BindEnv("bot.welcome_channel_id", "WELCOME_CHANNEL_ID")
	v.BindEnv("tickets.category_id", "TICKET_CATEGORY_ID")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for i := range config.Links {
		config.Links[i].Name = strings.TrimSpace(config.Links[i].Name)
		config.Links[i].URL = strings.TrimSpace(config.Links[i].URL)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.prefix", "!")
	v.SetDefault("platforms.discord.enabled", true)
	v.SetDefault("platforms.telegram.update_timeout", 60)
	v.SetDefault("completion.endpoint", "https://api.mistral.ai/v1/chat/completions")
	v.SetDefault("completion.template_path", "configs/completion_request.json")
	v.SetDefault("completion.placeholder", "{{prompt}}")
	v.SetDefault("completion.timeout", time.Minute)
	v.SetDefault("tickets.name_prefix", "ticket-")
	v.SetDefault("rate_limit.requests_per_minute", 20)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("monitoring.metrics.port", 9090)
	v.SetDefault("monitoring.metrics.path", "/metrics")
	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.languages", []string{"en"})
	v.SetDefault("i18n.directory", "configs/i18n")
}

func validateConfig(cfg *Config) error {
	discord := cfg.Platforms.Discord
	telegram := cfg.Platforms.Telegram
	if !discord.Enabled && !telegram.Enabled {
		return fmt.Errorf("at least one platform must be enabled")
	}
	if discord.Enabled {
		if discord.Token == "" {
			return fmt.Errorf("discord token is required")
		}
		if discord.GuildID == "" {
			return fmt.Errorf("guild id is required")
		}
		if _, err := strconv.ParseUint(discord.GuildID, 10, 64); err != nil {
			return fmt.Errorf("guild id must be a valid u64: %q", discord.GuildID)
		}
	}
	if telegram.Enabled && telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Completion.APIKey == "" {
		return fmt.Errorf("completion api key is required")
	}
	if cfg.Completion.Endpoint == "" {
		return fmt.Errorf("completion endpoint is required")
	}
	if len(cfg.Links) == 0 {
		return fmt.Errorf("at least one link is required")
	}
	for _, link := range cfg.Links {
		if link.Name == "" || link.URL == "" {
			return fmt.Errorf("link entries need both name and url")
		}
	}
	for name, cmd := range cfg.Commands {
		switch cmd.Cooldown.Scope {
		case "", "user", "guild", "channel":
		default:
			return fmt.Errorf("command %s: unknown cooldown scope %q", name, cmd.Cooldown.Scope)
		}
		if cmd.Cooldown.Duration < 0 {
			return fmt.Errorf("command %s: negative cooldown", name)
		}
	}
	return nil
}
