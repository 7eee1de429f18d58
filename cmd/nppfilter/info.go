package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/fxnlabs/nppfilter/internal/filter"
	"github.com/fxnlabs/nppfilter/internal/gpu"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
)

func infoCommand(state *cliState) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show the selected compute backend and its device",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-banner",
				Usage: "Skip the ASCII banner",
			},
		},
		Action: func(c *cli.Context) error {
			var manager *gpu.Manager
			app := fx.New(
				fx.NopLogger,
				fx.Supply(state.cfg, state.log),
				filter.Module,
				fx.Populate(&manager),
			)
			return withApp(c.Context, app, func() error {
				out := c.App.Writer
				if !c.Bool("no-banner") {
					fmt.Fprintln(out, figure.NewFigure("NPP Filter", "", true).String())
				}
				renderDeviceTable(out, manager)
				return nil
			})
		},
	}
}

func renderDeviceTable(w io.Writer, manager *gpu.Manager) {
	info := manager.GetDeviceInfo()
	accelerated := "no"
	if manager.IsGPUAvailable() {
		accelerated = "yes"
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Property", "Value"})
	t.AppendRows([]table.Row{
		{"Backend", manager.GetBackendType()},
		{"Accelerated", accelerated},
		{"Device", info.Name},
		{"Ordinal", info.Ordinal},
		{"Compute capability", info.ComputeCapability},
		{"Total memory", formatBytes(info.TotalMemory)},
		{"Available memory", formatBytes(info.AvailableMemory)},
		{"NPP version", info.NPPVersion},
		{"CUDA driver", info.DriverVersion},
		{"CUDA runtime", info.RuntimeVersion},
		{"Filters", strings.Join(filter.Names(), ", ")},
	})
	t.Render()
}

func formatBytes(n int64) string {
	if n <= 0 {
		return "N/A"
	}
	const gib = 1 << 30
	if n >= gib {
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	}
	return fmt.Sprintf("%d MiB", n>>20)
}
