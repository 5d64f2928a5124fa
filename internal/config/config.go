package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the bot.
// It is loaded once, validated, and passed to components by value at
// construction time; nothing mutates it afterwards. A config change means
// building a new Config and new components, never editing in place
type Config struct {
	App       AppConfig         `mapstructure:"app"`
	Discord   DiscordConfig     `mapstructure:"discord"`
	Channels  map[string]string `mapstructure:"channels"`
	Roles     map[string]string `mapstructure:"roles"`
	Colors    map[string]string `mapstructure:"colors"`
	Templates TemplatesConfig   `mapstructure:"templates"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Warera    WareraConfig      `mapstructure:"warera"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

type DiscordConfig struct {
	GuildID string `mapstructure:"guild_id"`
	OwnerID string `mapstructure:"owner_id"`
	Prefix  string `mapstructure:"prefix"`
}

type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// WareraConfig points the poller at the game REST API
type WareraConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	CountryID         string `mapstructure:"country_id"`
	PollMinutes       int    `mapstructure:"poll_minutes"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	MainCycleSeconds  int    `mapstructure:"main_cycle_seconds"`
	HousekeepingHours int    `mapstructure:"housekeeping_hours"`
	ThreatPeriodHours int    `mapstructure:"threat_period_hours"`
}

func (w WareraConfig) PollInterval() time.Duration {
	return time.Duration(w.PollMinutes) * time.Minute
}

func (w WareraConfig) MainCycle() time.Duration {
	return time.Duration(w.MainCycleSeconds) * time.Second
}

func (w WareraConfig) Housekeeping() time.Duration {
	return time.Duration(w.HousekeepingHours) * time.Hour
}

func (w WareraConfig) ThreatPeriod() time.Duration {
	return time.Duration(w.ThreatPeriodHours) * time.Hour
}

// Load reads the config file, applies defaults and validates the parts
// every component depends on
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("app.name", "warerabot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("discord.prefix", "warera")
	v.SetDefault("templates.dir", "templates")
	v.SetDefault("database.path", "warerabot.db")
	v.SetDefault("warera.base_url", "https://api.warera.io/trpc")
	v.SetDefault("warera.poll_minutes", 15)
	v.SetDefault("warera.requests_per_minute", 30)
	v.SetDefault("warera.main_cycle_seconds", 30)
	v.SetDefault("warera.housekeeping_hours", 12)
	v.SetDefault("warera.threat_period_hours", 1)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate enforces the required namespaces. A missing channel or role is a
// startup error, not something to discover when a dispatch silently goes
// nowhere
func (cfg Config) validate() error {
	if len(cfg.Channels) == 0 {
		return fmt.Errorf("config is missing the channels namespace")
	}
	if len(cfg.Roles) == 0 {
		return fmt.Errorf("config is missing the roles namespace")
	}
	for alias, id := range cfg.Channels {
		if id == "" {
			return fmt.Errorf("channel alias %q has an empty id", alias)
		}
	}
	for name, id := range cfg.Roles {
		if id == "" {
			return fmt.Errorf("role %q has an empty id", name)
		}
	}
	return nil
}

// ColorValues converts the configured color names to numeric values.
// Unparsable entries are dropped; the dispatcher falls back to its default
func (cfg Config) ColorValues() map[string]int {
	out := make(map[string]int, len(cfg.Colors))
	for name, literal := range cfg.Colors {
		value, err := strconv.ParseInt(literal, 0, 32)
		if err != nil {
			continue
		}
		out[name] = int(value)
	}
	return out
}
