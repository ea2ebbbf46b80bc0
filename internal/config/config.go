package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"linkcal/internal/domain"
)

const DefaultVaultPath = "~/Documents/vault"

// FileName is the per-vault settings file looked up in the vault root
const FileName = ".linkcal"

// VaultPath returns the vault path from LINKCAL_VAULT env var,
// falling back to DefaultVaultPath.
func VaultPath() string {
	if env := os.Getenv("LINKCAL_VAULT"); env != "" {
		return env
	}
	return DefaultVaultPath
}

// Config holds the per-vault settings
type Config struct {
	DailyFolder    string `mapstructure:"dailyFolder"`
	FirstDayOfWeek string `mapstructure:"firstDayOfWeek"`
	DefaultPeriod  string `mapstructure:"defaultPeriod"`
	DebounceMs     int    `mapstructure:"debounceMs"`
	GraceMs        int    `mapstructure:"graceMs"`
	LogLevel       string `mapstructure:"logLevel"`
}

// DefaultConfig returns the settings used when the vault has no settings file
func DefaultConfig() *Config {
	return &Config{
		DailyFolder:    "",
		FirstDayOfWeek: "monday",
		DefaultPeriod:  domain.DefaultPeriodToken,
		DebounceMs:     300,
		GraceMs:        500,
		LogLevel:       "info",
	}
}

// Load reads .linkcal.yaml from the vault root. Environment variables
// prefixed with LINKCAL_ override file values.
func Load(vaultPath string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("dailyFolder", def.DailyFolder)
	v.SetDefault("firstDayOfWeek", def.FirstDayOfWeek)
	v.SetDefault("defaultPeriod", def.DefaultPeriod)
	v.SetDefault("debounceMs", def.DebounceMs)
	v.SetDefault("graceMs", def.GraceMs)
	v.SetDefault("logLevel", def.LogLevel)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if vaultPath != "" {
		v.AddConfigPath(vaultPath)
	}

	v.SetEnvPrefix("LINKCAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := domain.ParseWeekday(c.FirstDayOfWeek); err != nil {
		return &ConfigError{Field: "firstDayOfWeek", Message: err.Error()}
	}
	if c.DebounceMs < 0 {
		return &ConfigError{Field: "debounceMs", Message: "must not be negative"}
	}
	if c.GraceMs < 0 {
		return &ConfigError{Field: "graceMs", Message: "must not be negative"}
	}
	return nil
}

// Weekday returns the configured first day of the week
func (c *Config) Weekday() time.Weekday {
	d, err := domain.ParseWeekday(c.FirstDayOfWeek)
	if err != nil {
		return time.Monday
	}
	return d
}

// DebounceDelay returns the quiet period before a batch of link
// resolutions is flushed
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// GraceDelay returns how long an instance ignores notifications after
// its own write
func (c *Config) GraceDelay() time.Duration {
	return time.Duration(c.GraceMs) * time.Millisecond
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}
