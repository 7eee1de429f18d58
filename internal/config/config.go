package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "nppfilter.yaml"
	DefaultSampleName = "Lena.pgm"

	// MaxBoxMaskSize is the largest accepted filters.box.maskSize.
	MaxBoxMaskSize = 255
)

type LoggerConfig struct {
	Verbosity string `yaml:"verbosity"`
	// Format is json, console or auto (console when stderr is a terminal).
	Format string `yaml:"format"`
}

type MaskConfig struct {
	MaskSize int `yaml:"maskSize"`
}

type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	GPU    struct {
		Backend string `yaml:"backend"`
		Device  int    `yaml:"device"`
	} `yaml:"gpu"`
	Filters struct {
		Box   MaskConfig `yaml:"box"`
		Gauss MaskConfig `yaml:"gauss"`
	} `yaml:"filters"`
	Data struct {
		SampleName  string   `yaml:"sampleName"`
		SearchPaths []string `yaml:"searchPaths"`
	} `yaml:"data"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Logger.Verbosity = "info"
	cfg.Logger.Format = "auto"
	cfg.GPU.Backend = "auto"
	cfg.Filters.Box.MaskSize = 5
	cfg.Filters.Gauss.MaskSize = 3
	cfg.Data.SampleName = DefaultSampleName
	cfg.Data.SearchPaths = []string{"data", filepath.Join("..", "data")}
	return cfg
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch c.GPU.Backend {
	case "auto", "cuda", "cpu":
	default:
		return fmt.Errorf("gpu.backend must be auto, cuda or cpu, got %q", c.GPU.Backend)
	}
	if c.GPU.Device < 0 {
		return fmt.Errorf("gpu.device must not be negative, got %d", c.GPU.Device)
	}
	switch c.Logger.Format {
	case "", "auto", "json", "console":
	default:
		return fmt.Errorf("logger.format must be auto, json or console, got %q", c.Logger.Format)
	}
	if n := c.Filters.Box.MaskSize; n < 1 || n > MaxBoxMaskSize {
		return fmt.Errorf("filters.box.maskSize must be between 1 and %d, got %d", MaxBoxMaskSize, n)
	}
	if n := c.Filters.Gauss.MaskSize; n < 3 || n%2 == 0 {
		return fmt.Errorf("filters.gauss.maskSize must be odd and at least 3, got %d", n)
	}
	return nil
}
