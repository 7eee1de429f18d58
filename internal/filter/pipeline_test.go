package filter

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/fxnlabs/nppfilter/internal/gpu"
	"github.com/fxnlabs/nppfilter/internal/imageio"
	"github.com/fxnlabs/nppfilter/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errInjected = errors.New("injected failure")

// fakeDevice wraps a CPU backend and can fail any single stage.
type fakeDevice struct {
	*gpu.CPUBackend
	failUpload   bool
	failFilter   bool
	failDownload bool
	failFree     bool

	uploads int
	frees   int
	specs   []gpu.FilterSpec
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	backend := gpu.NewCPUBackend(zap.NewNop())
	require.NoError(t, backend.Initialize())
	t.Cleanup(func() { _ = backend.Cleanup() })
	return &fakeDevice{CPUBackend: backend}
}

func (d *fakeDevice) Upload(src *gpu.HostImage) (gpu.DeviceImage, error) {
	if d.failUpload {
		return nil, errInjected
	}
	d.uploads++
	return d.CPUBackend.Upload(src)
}

func (d *fakeDevice) Filter(src gpu.DeviceImage, spec gpu.FilterSpec) (gpu.DeviceImage, error) {
	d.specs = append(d.specs, spec)
	if d.failFilter {
		return nil, errInjected
	}
	return d.CPUBackend.Filter(src, spec)
}

func (d *fakeDevice) Download(src gpu.DeviceImage) (*gpu.HostImage, error) {
	if d.failDownload {
		return nil, errInjected
	}
	return d.CPUBackend.Download(src)
}

func (d *fakeDevice) Free(img gpu.DeviceImage) error {
	d.frees++
	if err := d.CPUBackend.Free(img); err != nil {
		return err
	}
	if d.failFree {
		return errInjected
	}
	return nil
}

func (d *fakeDevice) GetBackendType() string { return "fake" }

func (d *fakeDevice) allocated() int64 {
	return d.GetDeviceInfo().AllocatedMemory
}

func writeSample(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := gpu.NewHostImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 13)
	}
	path := filepath.Join(dir, "sample.pgm")
	require.NoError(t, imageio.Save(path, img))
	return path
}

func TestPipeline_Run(t *testing.T) {
	for _, kind := range []Kind{Box, Gauss} {
		t.Run(kind.String(), func(t *testing.T) {
			dir := t.TempDir()
			input := writeSample(t, dir, 31, 17)
			device := newFakeDevice(t)
			m := metrics.New()

			res, err := New(device, DefaultOptions(), m, zap.NewNop()).Run(Request{
				InputPath: input,
				Kind:      kind,
			})
			require.NoError(t, err)

			wantPath := filepath.Join(dir, "sample"+kind.Suffix()+".pgm")
			assert.Equal(t, wantPath, res.OutputPath)
			assert.Equal(t, gpu.Size{Width: 31, Height: 17}, res.Size)
			assert.Equal(t, "fake", res.Backend)

			out, err := imageio.Load(wantPath)
			require.NoError(t, err)
			assert.Equal(t, res.Size, out.Size())
			assert.Equal(t, res.Output, Summarize(out))

			// Both device images freed
			assert.Equal(t, 2, device.frees)
			assert.Zero(t, device.allocated())

			assert.Equal(t, float64(1), testutil.ToFloat64(m.Runs.WithLabelValues(kind.String(), "fake", metrics.StatusOK)))
			assert.Equal(t, float64(31*17), testutil.ToFloat64(m.ImagePixels))
			assert.Equal(t, 5, testutil.CollectAndCount(m.StageDuration))
		})
	}
}

func TestPipeline_RunUsesConfiguredMasks(t *testing.T) {
	dir := t.TempDir()
	input := writeSample(t, dir, 8, 8)
	device := newFakeDevice(t)

	output := filepath.Join(dir, "custom.pgm")
	res, err := New(device, Options{BoxMaskSize: 3, GaussMaskSize: 5}, nil, nil).Run(Request{
		InputPath:  input,
		OutputPath: output,
		Kind:       Gauss,
	})
	require.NoError(t, err)
	assert.Equal(t, output, res.OutputPath)
	require.Len(t, device.specs, 1)
	assert.Equal(t, gpu.Size{Width: 5, Height: 5}, device.specs[0].Mask)
}

func TestPipeline_RunUnknownFilter(t *testing.T) {
	device := newFakeDevice(t)

	res, err := New(device, DefaultOptions(), nil, nil).Run(Request{
		InputPath: "does-not-matter.pgm",
		Kind:      Unknown,
	})
	assert.ErrorIs(t, err, ErrUnknownFilter)
	assert.Nil(t, res)
	assert.Zero(t, device.uploads)
}

func TestPipeline_RunMissingInput(t *testing.T) {
	device := newFakeDevice(t)
	m := metrics.New()

	_, err := New(device, DefaultOptions(), m, nil).Run(Request{
		InputPath: filepath.Join(t.TempDir(), "missing.pgm"),
		Kind:      Box,
	})
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Zero(t, device.uploads)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Runs.WithLabelValues("box_filter", "fake", metrics.StatusError)))
}

func TestPipeline_RunFreesOnFailure(t *testing.T) {
	testCases := []struct {
		name      string
		setup     func(*fakeDevice)
		wantFrees int
	}{
		{name: "upload", setup: func(d *fakeDevice) { d.failUpload = true }, wantFrees: 0},
		{name: "filter", setup: func(d *fakeDevice) { d.failFilter = true }, wantFrees: 1},
		{name: "download", setup: func(d *fakeDevice) { d.failDownload = true }, wantFrees: 2},
		{name: "free", setup: func(d *fakeDevice) { d.failFree = true }, wantFrees: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			input := writeSample(t, dir, 6, 6)
			device := newFakeDevice(t)
			tc.setup(device)

			_, err := New(device, DefaultOptions(), nil, nil).Run(Request{InputPath: input, Kind: Box})
			assert.ErrorIs(t, err, errInjected)
			assert.Equal(t, tc.wantFrees, device.frees)
			assert.Zero(t, device.allocated())
		})
	}
}

func TestPipeline_RunSaveFailure(t *testing.T) {
	dir := t.TempDir()
	input := writeSample(t, dir, 4, 4)
	device := newFakeDevice(t)

	_, err := New(device, DefaultOptions(), nil, nil).Run(Request{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "missing-dir", "out.pgm"),
		Kind:       Box,
	})
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 2, device.frees)
	assert.Zero(t, device.allocated())
}
