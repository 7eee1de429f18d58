package filter

import (
	"context"

	"github.com/fxnlabs/nppfilter/internal/config"
	"github.com/fxnlabs/nppfilter/internal/gpu"
	"github.com/fxnlabs/nppfilter/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a *gpu.Manager, *metrics.Metrics and *Pipeline from a
// supplied *config.Config and *zap.Logger. The manager's backend is cleaned
// up when the app stops.
var Module = fx.Module("filter",
	fx.Provide(
		newManager,
		metrics.New,
		newPipeline,
	),
)

func newManager(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*gpu.Manager, error) {
	manager, err := gpu.NewManager(logger.Named("gpu"), gpu.Options{
		Preference: cfg.GPU.Backend,
		Device:     cfg.GPU.Device,
	})
	if err != nil {
		return nil, err
	}

	info := manager.GetDeviceInfo()
	logger.Info("GPU backend initialized",
		zap.String("backend", manager.GetBackendType()),
		zap.String("device", info.Name),
		zap.String("compute_capability", info.ComputeCapability))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return manager.Cleanup()
		},
	})
	return manager, nil
}

func newPipeline(manager *gpu.Manager, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	return New(manager, Options{
		BoxMaskSize:   cfg.Filters.Box.MaskSize,
		GaussMaskSize: cfg.Filters.Gauss.MaskSize,
	}, m, logger)
}
