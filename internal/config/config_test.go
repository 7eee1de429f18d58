package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fxnlabs/nppfilter/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		config, err := LoadConfig("../../fixtures/tests/config/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, config)

		assert.Equal(t, "debug", config.Logger.Verbosity)
		assert.Equal(t, "json", config.Logger.Format)
		assert.Equal(t, "cpu", config.GPU.Backend)
		assert.Equal(t, 1, config.GPU.Device)
		assert.Equal(t, 7, config.Filters.Box.MaskSize)
		assert.Equal(t, 5, config.Filters.Gauss.MaskSize)
		assert.Equal(t, "Barbara.pgm", config.Data.SampleName)
		assert.Equal(t, []string{"/opt/samples"}, config.Data.SearchPaths)
		assert.Equal(t, "/var/lib/node_exporter/nppfilter.prom", config.Metrics.Textfile)
	})

	t.Run("partial config keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("logger:\n  verbosity: warn\n"), 0o600))

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "warn", config.Logger.Verbosity)
		assert.Equal(t, "auto", config.GPU.Backend)
		assert.Equal(t, 5, config.Filters.Box.MaskSize)
		assert.Equal(t, 3, config.Filters.Gauss.MaskSize)
		assert.Equal(t, DefaultSampleName, config.Data.SampleName)
	})

	t.Run("non-existent file", func(t *testing.T) {
		_, err := LoadConfig("non-existent-file.yaml")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		dir, err := os.Getwd()
		require.NoError(t, err)

		configPath := filepath.Join(dir, "..", "..", "fixtures", "tests", "invalid_config", "config.yaml")
		_, err = LoadConfig(configPath)
		assert.Error(t, err)
	})

	t.Run("invalid backend", func(t *testing.T) {
		_, err := LoadConfig("../../fixtures/tests/config/bad_backend.yaml")
		assert.ErrorContains(t, err, "gpu.backend")
	})

	t.Run("embedded template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		require.NoError(t, os.WriteFile(path, fixtures.ConfigTemplate, 0o600))

		config, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), config)
	})
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "cuda backend", mutate: func(c *Config) { c.GPU.Backend = "cuda" }},
		{name: "negative device", mutate: func(c *Config) { c.GPU.Device = -1 }, wantErr: true},
		{name: "zero box mask", mutate: func(c *Config) { c.Filters.Box.MaskSize = 0 }, wantErr: true},
		{name: "largest box mask", mutate: func(c *Config) { c.Filters.Box.MaskSize = MaxBoxMaskSize }},
		{name: "oversized box mask", mutate: func(c *Config) { c.Filters.Box.MaskSize = MaxBoxMaskSize + 1 }, wantErr: true},
		{name: "huge box mask", mutate: func(c *Config) { c.Filters.Box.MaskSize = 3001 }, wantErr: true},
		{name: "even gauss mask", mutate: func(c *Config) { c.Filters.Gauss.MaskSize = 4 }, wantErr: true},
		{name: "1x1 gauss mask", mutate: func(c *Config) { c.Filters.Gauss.MaskSize = 1 }, wantErr: true},
		{name: "unknown log format", mutate: func(c *Config) { c.Logger.Format = "xml" }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
