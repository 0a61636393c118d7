// Package config provides configuration loading and management for
// neurofill. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many goroutines to use for merging and
		// rasterizing slices
		NumWorkers int `yaml:"numWorkers"`

		// PixelWidth is the output storage width in bits (8, 16 or 32)
		PixelWidth int `yaml:"pixelWidth"`

		// PreserveIntensity writes source pixel values instead of the
		// marker value for voxels inside the fill
		PreserveIntensity bool `yaml:"preserveIntensity"`

		// Threshold overrides the inclusion threshold when non-nil;
		// otherwise the first fill's threshold is used
		Threshold *float64 `yaml:"threshold,omitempty"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Dir is the directory where rasterized slices are written
		Dir string `yaml:"dir"`

		// JpegQuality is the encoding quality for saved slices (1-100)
		JpegQuality int `yaml:"jpegQuality"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.PixelWidth = 16
	cfg.Processing.PreserveIntensity = false

	// Set default output parameters
	cfg.Output.Dir = "rasterized_slices"
	cfg.Output.JpegQuality = 90
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
