package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/CTAG07/graph-composer/pkg/markov"
	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP server and storage.
type ServerConfig struct {
	ServerAddr   string `json:"server_addr"`
	LogLevel     string `json:"log_level"`
	DataDir      string `json:"data_dir"`
	DatabasePath string `json:"database_path"`
}

// ComposerConfig holds the defaults and limits applied to every composition.
type ComposerConfig struct {
	MaxTokens     int     `json:"max_tokens"`
	DefaultLength int     `json:"default_length"`
	MaxLength     int     `json:"max_length"`
	DeadEndPolicy string  `json:"dead_end_policy"`
	Temperature   float64 `json:"temperature"`
	TopK          int     `json:"top_k"`
	Separator     string  `json:"separator"`
	RecordHistory bool    `json:"record_history"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server   *ServerConfig   `json:"server_config"`
	Composer *ComposerConfig `json:"composer_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:   ":7277",
		LogLevel:     "info",
		DataDir:      "./data",
		DatabasePath: "./data/composer.db",
	}
}

// DefaultComposerConfig creates a composer configuration with default values.
func DefaultComposerConfig() *ComposerConfig {
	return &ComposerConfig{
		MaxTokens:     markov.DefaultMaxTokens,
		DefaultLength: 50,
		MaxLength:     1000,
		DeadEndPolicy: markov.DeadEndStop.String(),
		Temperature:   1.0,
		TopK:          0,
		Separator:     " ",
		RecordHistory: true,
	}
}

// DefaultConfig returns a Config with every section set to its defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:   DefaultServerConfig(),
		Composer: DefaultComposerConfig(),
	}
}

// Validate checks the values that would otherwise only fail at request time.
func (c *Config) Validate() error {
	if c.Server == nil || c.Composer == nil {
		return fmt.Errorf("config sections server_config and composer_config are required")
	}
	if _, err := markov.ParseDeadEndPolicy(c.Composer.DeadEndPolicy); err != nil {
		return err
	}
	if c.Composer.MaxLength <= 0 {
		return fmt.Errorf("max_length must be positive")
	}
	if c.Composer.DefaultLength < 0 {
		return fmt.Errorf("default_length must not be negative")
	}
	if c.Composer.DefaultLength > c.Composer.MaxLength {
		return fmt.Errorf("default_length %d exceeds max_length %d", c.Composer.DefaultLength, c.Composer.MaxLength)
	}
	if c.Composer.TopK < 0 {
		return fmt.Errorf("top_k must not be negative")
	}
	return nil
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	// Initialize with default configurations
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the program can still run with defaults.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal the JSON from the file into the config struct.
	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return config, nil
}

// parseLogLevel maps the configured level name to a slog.Level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigManager handles thread-safe access to the configuration.
type ConfigManager struct {
	config     *Config
	mu         sync.RWMutex
	configPath string
	logger     *slog.Logger
}

// NewConfigManager loads the config and initializes the manager.
func NewConfigManager(path string) (*ConfigManager, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return &ConfigManager{
		config:     cfg,
		configPath: path,
		// Log to stdout before the application-specific logger is set.
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})),
	}, nil
}

// SetLogger sets the logger. That's about it.
func (cm *ConfigManager) SetLogger(logger *slog.Logger) {
	cm.logger = logger
}

// Get returns a copy of the current configuration. The section pointers are
// copied too, so callers may not modify them.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config
}

// Composer returns a copy of the current composer section.
func (cm *ConfigManager) Composer() ComposerConfig {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return *cm.config.Composer
}

// Update validates the configuration, swaps it in and saves it to disk.
func (cm *ConfigManager) Update(newConfig Config) error {
	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("configuration rejected: %w", err)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.config = &newConfig

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomic.WriteFile(cm.configPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cm.logger.Info("Configuration updated", "path", cm.configPath)
	return nil
}
