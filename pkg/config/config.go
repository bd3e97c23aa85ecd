// Package config provides configuration loading and persistence for the
// targeting-accuracy workflow. It handles loading settings from YAML files,
// provides defaults, and round-trips the fitted mapping transform so a
// completed mapping can be reused across runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the workflow configuration loaded from YAML.
type Config struct {
	// Detection parameters shared by mapping and analysis.
	Detection struct {
		// BlobCount is the number of targets to locate in each frame.
		BlobCount int `yaml:"blobCount"`

		// MedianRadius is the median pre-filter radius. Zero disables it.
		MedianRadius int `yaml:"medianRadius"`

		// OpeningRadius is the structuring-element radius for the opening
		// pre-filter used on well-separated mapping images.
		OpeningRadius int `yaml:"openingRadius"`

		// DilationRadius is the structuring-element radius for the dilation
		// pre-filter used on sparse stack acquisitions.
		DilationRadius int `yaml:"dilationRadius"`

		// MapMode and StackMode select the pre-filter per pipeline stage:
		// "none", "opening" or "dilation".
		MapMode   string `yaml:"mapMode"`
		StackMode string `yaml:"stackMode"`
	} `yaml:"detection"`

	// Mapping parameters: the two reference images, the user-selected
	// points in each, and the fitted transform once mapping has run.
	Mapping struct {
		// ImageA and ImageB are the two reference image paths.
		ImageA string `yaml:"imageA"`
		ImageB string `yaml:"imageB"`

		// ReferenceA and ReferenceB are the user-selected points, one per
		// target, in (row, col) order. Ordering encodes target identity.
		ReferenceA [][]float64 `yaml:"referenceA"`
		ReferenceB [][]float64 `yaml:"referenceB"`

		// Mapped records whether Transform holds a completed fit; when set,
		// the workflow skips mapping and reuses the stored parameters.
		Mapped bool `yaml:"mapped"`

		// Transform is the persisted similarity fit.
		Transform struct {
			CenterA []float64 `yaml:"centerA"`
			CenterB []float64 `yaml:"centerB"`
			Scale   float64   `yaml:"scale"`
			Angle   float64   `yaml:"angle"`
		} `yaml:"transform"`
	} `yaml:"mapping"`

	// Analysis parameters for the 3D accuracy pass.
	Analysis struct {
		// StackDir is the directory holding the acquired stack slices.
		StackDir string `yaml:"stackDir"`

		// ZSpacing is the axial spacing, in slice indices, between
		// consecutive projected targets.
		ZSpacing float64 `yaml:"zSpacing"`

		// VoxelSize is the physical voxel size in (z, y, x) order, used to
		// convert index-space errors to physical units.
		VoxelSize []float64 `yaml:"voxelSize"`
	} `yaml:"analysis"`

	// Output parameters.
	Output struct {
		// Verbose controls the level of logging output.
		Verbose bool `yaml:"verbose"`

		// PlotDir is where accuracy plots and overlays are written.
		PlotDir string `yaml:"plotDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default detection parameters.
	cfg.Detection.BlobCount = 5
	cfg.Detection.MedianRadius = 3
	cfg.Detection.OpeningRadius = 3
	cfg.Detection.DilationRadius = 10
	cfg.Detection.MapMode = "opening"
	cfg.Detection.StackMode = "dilation"

	// Set default analysis parameters.
	cfg.Analysis.ZSpacing = 5
	cfg.Analysis.VoxelSize = []float64{1, 1, 1}

	// Set default output parameters.
	cfg.Output.Verbose = true
	cfg.Output.PlotDir = "accuracy_results"

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
