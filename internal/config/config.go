package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Owner    OwnerConfig
	Import   ImportConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// OwnerConfig identifies the default owner the CLI operates as.
type OwnerConfig struct {
	ID string
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	Timezone   string
	DateFormat string
}

// Load reads configuration from file and env. Env var overrides use prefix STUDIOBOOKS_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "studiobooks", "studiobooks.db"))
	v.SetDefault("owner.id", "")
	v.SetDefault("import.timezone", "Europe/London")
	v.SetDefault("import.date_format", "02/01/2006")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("STUDIOBOOKS_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "studiobooks"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("STUDIOBOOKS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("STUDIOBOOKS_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "studiobooks", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("owner.id", cfg.Owner.ID)
	v.Set("import.timezone", cfg.Import.Timezone)
	v.Set("import.date_format", cfg.Import.DateFormat)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
