// Package config loads and validates the tool configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the main configuration structure.
type Config struct {
	SourceDirectory      string        `mapstructure:"source_directory"`
	DestinationDirectory string        `mapstructure:"destination_directory"`
	Quality              float64       `mapstructure:"quality"`
	ResizeRatio          float64       `mapstructure:"resize_ratio"`
	Threads              int           `mapstructure:"threads"`
	DeleteOriginal       bool          `mapstructure:"delete_original"`
	PreserveModTime      bool          `mapstructure:"preserve_mod_time"`
	Overwrite            bool          `mapstructure:"overwrite"`
	Web                  WebConfig     `mapstructure:"web"`
	Logging              LoggingConfig `mapstructure:"logging"`
}

// WebConfig contains settings for the status web server.
type WebConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Quality:         80,
		ResizeRatio:     0.8,
		Threads:         4,
		PreserveModTime: true,
		Web: WebConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
			Console:    true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-compressor")
		viper.AddConfigPath("/etc/image-compressor")
	}

	viper.SetEnvPrefix("IMAGE_COMPRESSOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults.
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.SourceDirectory != "" && !isDirectory(c.SourceDirectory) {
		return fmt.Errorf("source_directory does not exist or is not a directory: %s", c.SourceDirectory)
	}

	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality must be within [0, 100], got %v", c.Quality)
	}
	if c.ResizeRatio <= 0 || c.ResizeRatio > 1 {
		return fmt.Errorf("resize_ratio must be within (0, 1], got %v", c.ResizeRatio)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web.port must be a valid port, got %d", c.Web.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

func isDirectory(path string) bool {
	stat, err := os.Stat(os.ExpandEnv(path))
	return err == nil && stat.IsDir()
}
