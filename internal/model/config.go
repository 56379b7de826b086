package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Path is the SQLite database file location.
	Path string `mapstructure:"path" yaml:"path"`
}

// RetentionConfig holds sweep settings for completed tasks.
type RetentionConfig struct {
	// SweepIntervalMin is how often (in minutes) the background sweep
	// runs while a session is active.
	SweepIntervalMin int `mapstructure:"sweep_interval_min" yaml:"sweep_interval_min"`
}

// ReminderConfig holds habit reminder settings.
type ReminderConfig struct {
	// Enabled controls whether reminder jobs are scheduled at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Timezone is an IANA zone name for reminder scheduling; empty
	// means the system's local zone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Retention RetentionConfig `mapstructure:"retention" yaml:"retention"`
	Reminders ReminderConfig  `mapstructure:"reminders" yaml:"reminders"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/habitflow/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "habitflow", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Path: defaultDBPath(),
		},
		Retention: RetentionConfig{
			SweepIntervalMin: 60,
		},
		Reminders: ReminderConfig{
			Enabled: true,
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "habitflow.db"
	}
	return filepath.Join(home, ".config", "habitflow", "habitflow.db")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("storage.path", defaultDBPath())
	v.SetDefault("retention.sweep_interval_min", 60)
	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.timezone", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Retention.SweepIntervalMin <= 0 {
		cfg.Retention.SweepIntervalMin = 60
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage", cfg.Storage)
	v.Set("retention", cfg.Retention)
	v.Set("reminders", cfg.Reminders)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
