package filter

import (
	"fmt"
	"time"

	"github.com/fxnlabs/nppfilter/internal/gpu"
	"github.com/fxnlabs/nppfilter/internal/imageio"
	"github.com/fxnlabs/nppfilter/internal/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Device is the subset of gpu.Manager the pipeline drives.
type Device interface {
	Upload(src *gpu.HostImage) (gpu.DeviceImage, error)
	Filter(src gpu.DeviceImage, spec gpu.FilterSpec) (gpu.DeviceImage, error)
	Download(src gpu.DeviceImage) (*gpu.HostImage, error)
	Free(img gpu.DeviceImage) error
	GetBackendType() string
}

// Request describes one filter run.
type Request struct {
	InputPath  string
	OutputPath string
	Kind       Kind
}

// Result reports what a run produced.
type Result struct {
	OutputPath string
	Size       gpu.Size
	Backend    string
	Input      Stats
	Output     Stats
	Elapsed    time.Duration
}

// Pipeline runs load, upload, filter, download and save for one image.
type Pipeline struct {
	device  Device
	opts    Options
	metrics *metrics.Metrics
	logger  *zap.Logger

	load func(string) (*gpu.HostImage, error)
	save func(string, *gpu.HostImage) error
}

// New creates a pipeline on device. A nil metrics or logger disables that
// concern.
func New(device Device, opts Options, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		device:  device,
		opts:    opts,
		metrics: m,
		logger:  logger.Named("filter"),
		load:    imageio.Load,
		save:    imageio.Save,
	}
}

func (p *Pipeline) stage(name string, start time.Time) {
	d := time.Since(start)
	if p.metrics != nil {
		p.metrics.ObserveStage(name, d)
	}
	p.logger.Debug("Stage completed", zap.String("stage", name), zap.Duration("elapsed", d))
}

// Run filters req.InputPath into req.OutputPath. Device images are freed
// before Run returns, whether or not a stage failed. The first stage error
// is returned, joined with any error from freeing.
func (p *Pipeline) Run(req Request) (res *Result, err error) {
	spec, err := SpecFor(req.Kind, p.opts)
	if err != nil {
		return nil, err
	}
	outPath := req.OutputPath
	if outPath == "" {
		outPath = OutputPath(req.InputPath, req.Kind)
	}

	backend := p.device.GetBackendType()
	log := p.logger.With(
		zap.String("filter", req.Kind.String()),
		zap.String("backend", backend),
		zap.String("input", req.InputPath))

	begin := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordRun(req.Kind.String(), backend, err)
		}
		if err != nil {
			log.Error("Filter run failed", zap.Error(err))
		}
	}()

	start := time.Now()
	host, err := p.load(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", req.InputPath, err)
	}
	p.stage(metrics.StageLoad, start)
	if p.metrics != nil {
		p.metrics.ImagePixels.Set(float64(host.Width * host.Height))
	}
	inStats := Summarize(host)
	log.Info("Loaded image",
		zap.Stringer("size", host.Size()),
		zap.Object("stats", inStats))

	start = time.Now()
	src, err := p.device.Upload(host)
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}
	defer func() { err = multierr.Append(err, p.free("source", src)) }()
	p.stage(metrics.StageUpload, start)
	log.Debug("Uploaded image", zap.Int("pitch", src.Pitch()))

	start = time.Now()
	dst, err := p.device.Filter(src, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", req.Kind, err)
	}
	defer func() { err = multierr.Append(err, p.free("destination", dst)) }()
	p.stage(metrics.StageFilter, start)

	start = time.Now()
	out, err := p.device.Download(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	p.stage(metrics.StageDownload, start)

	start = time.Now()
	if err := p.save(outPath, out); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", outPath, err)
	}
	p.stage(metrics.StageSave, start)

	res = &Result{
		OutputPath: outPath,
		Size:       out.Size(),
		Backend:    backend,
		Input:      inStats,
		Output:     Summarize(out),
		Elapsed:    time.Since(begin),
	}
	log.Info("Saved image",
		zap.String("output", outPath),
		zap.Object("stats", res.Output),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (p *Pipeline) free(which string, img gpu.DeviceImage) error {
	if err := p.device.Free(img); err != nil {
		return fmt.Errorf("failed to free %s image: %w", which, err)
	}
	return nil
}
