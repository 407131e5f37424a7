// Package config handles configuration loading for kestrel.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for kestrel.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds reasoning-collaborator settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
}

// DefaultsConfig holds default request values.
type DefaultsConfig struct {
	Goal        string `mapstructure:"goal"`
	TokenBudget int    `mapstructure:"token_budget"`
	Workers     int    `mapstructure:"workers"`
}

// CatalogConfig holds tool catalog settings.
type CatalogConfig struct {
	// Dir is an optional directory of extra tool YAML files.
	Dir string `mapstructure:"dir"`
	// Watch enables hot-registration of tools dropped into Dir.
	Watch bool `mapstructure:"watch"`
}

// QueueConfig holds workflow queue settings.
type QueueConfig struct {
	// Driver selects the transport: "memory" or "nats".
	Driver string `mapstructure:"driver"`
	// NATSURL is the server URL for the nats driver.
	NATSURL string `mapstructure:"nats_url"`
}

// RetryConfig holds role retry settings.
type RetryConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	RoleTimeout       time.Duration `mapstructure:"role_timeout"`
}

// StorageConfig holds decision-store settings.
type StorageConfig struct {
	// Path is the SQLite database path. Empty means the XDG data dir.
	Path string `mapstructure:"path"`
}

// TUIConfig holds status display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, KESTREL_*)
// 2. Project config (.kestrel.yaml in current directory or a parent)
// 3. User config (~/.config/kestrel/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("KESTREL")
	v.AutomaticEnv()

	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("queue.nats_url", "KESTREL_NATS_URL")
	v.BindEnv("queue.driver", "KESTREL_QUEUE_DRIVER")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("defaults.goal", cfg.Defaults.Goal)
	v.Set("defaults.token_budget", cfg.Defaults.TokenBudget)
	v.Set("defaults.workers", cfg.Defaults.Workers)
	v.Set("catalog.dir", cfg.Catalog.Dir)
	v.Set("catalog.watch", cfg.Catalog.Watch)
	v.Set("queue.driver", cfg.Queue.Driver)
	v.Set("queue.nats_url", cfg.Queue.NATSURL)
	v.Set("retry.max_retries", cfg.Retry.MaxRetries)
	v.Set("retry.backoff_base", cfg.Retry.BackoffBase.String())
	v.Set("retry.backoff_multiplier", cfg.Retry.BackoffMultiplier)
	v.Set("retry.max_backoff", cfg.Retry.MaxBackoff.String())
	v.Set("retry.role_timeout", cfg.Retry.RoleTimeout.String())
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// StoragePath returns the decision-store path, defaulting to the XDG data dir.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "kestrel", "decisions.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".kestrel", "decisions.db")
	}
	return filepath.Join(home, ".local", "share", "kestrel", "decisions.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("defaults.goal", "balanced")
	v.SetDefault("defaults.token_budget", 2048)
	v.SetDefault("defaults.workers", 2)

	v.SetDefault("catalog.dir", "")
	v.SetDefault("catalog.watch", false)

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.nats_url", "nats://127.0.0.1:4222")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.backoff_base", "500ms")
	v.SetDefault("retry.backoff_multiplier", 2.0)
	v.SetDefault("retry.max_backoff", "30s")
	v.SetDefault("retry.role_timeout", "2m")

	v.SetDefault("storage.path", "")

	v.SetDefault("tui.refresh_rate", "100ms")
}

// getUserConfigDir returns the XDG config directory for kestrel.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kestrel")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "kestrel")
	}
	return filepath.Join(home, ".config", "kestrel")
}

// findProjectConfig searches for .kestrel.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".kestrel.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Goal:        "balanced",
			TokenBudget: 2048,
			Workers:     2,
		},
		Queue: QueueConfig{
			Driver:  "memory",
			NATSURL: "nats://127.0.0.1:4222",
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			BackoffBase:       500 * time.Millisecond,
			BackoffMultiplier: 2.0,
			MaxBackoff:        30 * time.Second,
			RoleTimeout:       2 * time.Minute,
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}
