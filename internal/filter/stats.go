package filter

import (
	"github.com/fxnlabs/nppfilter/internal/gpu"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the intensity distribution of an image.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes intensity statistics over the visible pixels of img.
func Summarize(img *gpu.HostImage) Stats {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return Stats{}
	}

	values := make([]float64, 0, img.Width*img.Height)
	for y := 0; y < img.Height; y++ {
		for _, v := range img.Row(y) {
			values = append(values, float64(v))
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return Stats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// MarshalLogObject lets Stats be logged with zap.Object.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddFloat64("mean", s.Mean)
	enc.AddFloat64("stddev", s.StdDev)
	enc.AddFloat64("min", s.Min)
	enc.AddFloat64("max", s.Max)
	return nil
}
