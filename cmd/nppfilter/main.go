package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fxnlabs/nppfilter/internal/config"
	"github.com/fxnlabs/nppfilter/internal/logger"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// cliState is filled in by the Before hook and read by the commands.
type cliState struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	state := &cliState{}

	return &cli.App{
		Name:      "nppfilter",
		Usage:     "Apply a box or Gaussian filter to a grayscale image with NVIDIA NPP",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   config.DefaultConfigFile,
				Usage:   "Path to the YAML config file",
				EnvVars: []string{"NPPFILTER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "input",
				Usage: "Input image; defaults to the sample image found in the data directories",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output image; defaults to the input path with a filter suffix",
			},
			&cli.StringFlag{
				Name:  "filter",
				Value: "box_filter",
				Usage: "Filter to apply: box_filter or gauss_filter",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Compute backend: auto, cuda or cpu (overrides gpu.backend)",
			},
			&cli.IntFlag{
				Name:  "device",
				Usage: "CUDA device ordinal (overrides gpu.device)",
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Usage: "Log level (overrides logger.verbosity)",
			},
			&cli.StringFlag{
				Name:  "metrics-textfile",
				Usage: "Write Prometheus metrics to this file after the run",
			},
		},
		Before: func(c *cli.Context) error {
			// config init must work before any config file exists
			if c.Args().First() == "config" {
				return nil
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Logger.Verbosity, cfg.Logger.Format)
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.log = log.With(zap.String("run_id", uuid.NewString()))
			return nil
		},
		After: func(c *cli.Context) error {
			if state.log != nil {
				_ = state.log.Sync()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return filterAction(c, state)
		},
		Commands: []*cli.Command{
			infoCommand(state),
			configCommands(),
		},
	}
}

// loadConfig reads the config file and applies flag overrides. A missing
// file is only an error when the path was chosen explicitly.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		explicit := c.IsSet("config")
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = config.Default()
	}

	if c.IsSet("backend") {
		cfg.GPU.Backend = c.String("backend")
	}
	if c.IsSet("device") {
		cfg.GPU.Device = c.Int("device")
	}
	if c.IsSet("verbosity") {
		cfg.Logger.Verbosity = c.String("verbosity")
	}
	if c.IsSet("metrics-textfile") {
		cfg.Metrics.Textfile = c.String("metrics-textfile")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
