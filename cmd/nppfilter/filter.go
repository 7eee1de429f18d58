package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fxnlabs/nppfilter/internal/config"
	"github.com/fxnlabs/nppfilter/internal/filter"
	"github.com/fxnlabs/nppfilter/internal/gpu"
	"github.com/fxnlabs/nppfilter/internal/imageio"
	"github.com/fxnlabs/nppfilter/internal/metrics"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func filterAction(c *cli.Context, state *cliState) error {
	out := c.App.Writer
	fmt.Fprintf(out, "%s Starting...\n\n", c.App.Name)

	name := c.String("filter")
	kind := filter.Lookup(name)
	if kind == filter.Unknown {
		fmt.Fprintf(out, "unknown command %q: expected one of %s\n", name, strings.Join(filter.Names(), ", "))
		return nil
	}

	input, err := resolveInput(c.String("input"), state.cfg)
	if err != nil {
		return err
	}

	var (
		pipeline *filter.Pipeline
		manager  *gpu.Manager
		m        *metrics.Metrics
	)
	app := fx.New(
		fx.NopLogger,
		fx.Supply(state.cfg, state.log),
		filter.Module,
		fx.Populate(&pipeline, &manager, &m),
	)
	return withApp(c.Context, app, func() error {
		printVersions(out, manager.GetBackendType(), manager.GetDeviceInfo())

		res, err := pipeline.Run(filter.Request{
			InputPath:  input,
			OutputPath: c.String("output"),
			Kind:       kind,
		})
		if path := state.cfg.Metrics.Textfile; path != "" {
			if werr := m.WriteTextfile(path); werr != nil {
				state.log.Warn("Failed to write metrics textfile", zap.String("path", path), zap.Error(werr))
			}
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Saved image: %s\n", res.OutputPath)
		return nil
	})
}

// resolveInput returns the --input path, or the sample image from the data
// directories when --input is empty.
func resolveInput(input string, cfg *config.Config) (string, error) {
	if input != "" {
		return input, nil
	}
	path := imageio.FindFile(cfg.Data.SampleName, cfg.Data.SearchPaths...)
	if path == "" {
		return "", fmt.Errorf("input file %s not found", cfg.Data.SampleName)
	}
	return path, nil
}

func printVersions(w io.Writer, backend string, info gpu.DeviceInfo) {
	fmt.Fprintf(w, "Backend: %s (%s)\n", backend, info.Name)
	fmt.Fprintf(w, "NPP Library Version: %s\n", info.NPPVersion)
	fmt.Fprintf(w, "CUDA Driver Version: %s\n", info.DriverVersion)
	fmt.Fprintf(w, "CUDA Runtime Version: %s\n\n", info.RuntimeVersion)
}
