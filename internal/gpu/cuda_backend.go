//go:build cuda
// +build cuda

package gpu

import (
	"fmt"
	"sync"

	"github.com/fxnlabs/nppfilter/cuda"
	"go.uber.org/zap"
)

// cudaImage is a device image allocated with nppiMalloc.
type cudaImage struct {
	owner *CUDABackend
	size  Size
	pitch int
	buf   *cuda.Image8u
}

func (i *cudaImage) Size() Size { return i.size }
func (i *cudaImage) Pitch() int { return i.pitch }

// CUDABackend implements GPUBackend with NVIDIA NPP
type CUDABackend struct {
	logger      *zap.Logger
	device      int
	mu          sync.Mutex
	initialized bool
	available   bool
	deviceInfo  DeviceInfo
	allocated   int64
}

// NewCUDABackend creates a new CUDA backend bound to a device ordinal
func NewCUDABackend(logger *zap.Logger, device int) *CUDABackend {
	backend := &CUDABackend{
		logger: logger,
		device: device,
	}

	if err := backend.checkDevice(); err != nil {
		logger.Warn("CUDA device not available", zap.Int("device", device), zap.Error(err))
		backend.available = false
	} else {
		backend.available = true
	}

	return backend
}

// Initialize selects the device and gathers its version information
func (c *CUDABackend) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.available {
		return fmt.Errorf("CUDA device %d: %w", c.device, ErrBackendUnavailable)
	}
	if c.initialized {
		return nil
	}

	c.logger.Debug("Initializing CUDA backend", zap.Int("device", c.device))

	if err := cuda.SetDevice(c.device); err != nil {
		return err
	}
	props, err := cuda.GetDeviceProperties(c.device)
	if err != nil {
		return err
	}
	driver, err := cuda.DriverVersion()
	if err != nil {
		return err
	}
	runtime, err := cuda.RuntimeVersion()
	if err != nil {
		return err
	}
	free, total, err := cuda.MemInfo()
	if err != nil {
		return err
	}

	c.deviceInfo = DeviceInfo{
		Name:              props.Name,
		Ordinal:           c.device,
		TotalMemory:       total,
		AvailableMemory:   free,
		ComputeCapability: fmt.Sprintf("%d.%d", props.Major, props.Minor),
		DriverVersion:     cuda.FormatCUDAVersion(driver),
		RuntimeVersion:    cuda.FormatCUDAVersion(runtime),
		NPPVersion:        cuda.NPPVersion().String(),
	}

	c.initialized = true
	c.logger.Info("CUDA backend initialized",
		zap.String("device", c.deviceInfo.Name),
		zap.String("compute_capability", c.deviceInfo.ComputeCapability),
		zap.String("npp_version", c.deviceInfo.NPPVersion),
		zap.Float64("total_memory_gb", float64(total)/(1<<30)))

	return nil
}

// bind makes the backend's device current on this thread. The runtime keeps
// the current device per OS thread and goroutines may migrate between calls.
func (c *CUDABackend) bind() error {
	if !c.initialized {
		return fmt.Errorf("CUDA backend: %w", ErrNotInitialized)
	}
	return cuda.SetDevice(c.device)
}

func (c *CUDABackend) alloc(size Size) (*cudaImage, error) {
	buf, err := cuda.Malloc8u(size.Width, size.Height)
	if err != nil {
		return nil, err
	}
	c.allocated += buf.Bytes()
	return &cudaImage{owner: c, size: size, pitch: buf.Pitch, buf: buf}, nil
}

func (c *CUDABackend) own(img DeviceImage) (*cudaImage, error) {
	in, ok := img.(*cudaImage)
	if !ok || in.owner != c {
		return nil, ErrForeignImage
	}
	if in.buf == nil {
		return nil, fmt.Errorf("use of freed device image: %w", ErrDoubleFree)
	}
	return in, nil
}

// Upload allocates a pitched device image and copies src into it
func (c *CUDABackend) Upload(src *HostImage) (DeviceImage, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.bind(); err != nil {
		return nil, err
	}
	img, err := c.alloc(src.Size())
	if err != nil {
		return nil, err
	}
	if err := img.buf.Upload(src.Pix, src.Pitch); err != nil {
		c.release(img)
		return nil, err
	}
	return img, nil
}

// Filter runs the NPP primitive selected by spec
func (c *CUDABackend) Filter(src DeviceImage, spec FilterSpec) (DeviceImage, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Op == OpGaussFilter && !cuda.SupportsGaussMask(spec.Mask.Width) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMask, spec.Mask)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	in, err := c.own(src)
	if err != nil {
		return nil, err
	}
	if err := c.bind(); err != nil {
		return nil, err
	}
	out, err := c.alloc(in.Size())
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Applying NPP filter",
		zap.Stringer("op", spec.Op),
		zap.Stringer("mask", spec.Mask),
		zap.Int("src_pitch", in.Pitch()),
		zap.Int("dst_pitch", out.Pitch()))

	switch spec.Op {
	case OpBoxFilter:
		err = cuda.FilterBoxReplicate(in.buf, out.buf, spec.Mask.Width, spec.Mask.Height, spec.Anchor.X, spec.Anchor.Y)
	case OpGaussFilter:
		err = cuda.FilterGaussReplicate(in.buf, out.buf, spec.Mask.Width)
	}
	if err != nil {
		c.release(out)
		return nil, err
	}
	return out, nil
}

// Download copies a device image into a tightly packed host image
func (c *CUDABackend) Download(img DeviceImage) (*HostImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	in, err := c.own(img)
	if err != nil {
		return nil, err
	}
	if err := c.bind(); err != nil {
		return nil, err
	}
	dst := NewHostImage(in.buf.Width, in.buf.Height)
	if err := in.buf.Download(dst.Pix, dst.Pitch); err != nil {
		return nil, err
	}
	return dst, nil
}

// Free releases the device buffer behind img
func (c *CUDABackend) Free(img DeviceImage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	in, err := c.own(img)
	if err != nil {
		return err
	}
	if err := c.bind(); err != nil {
		return err
	}
	c.release(in)
	return nil
}

func (c *CUDABackend) release(img *cudaImage) {
	c.allocated -= img.buf.Bytes()
	img.buf.Free()
	img.buf = nil
}

// GetDeviceInfo returns information about the CUDA device
func (c *CUDABackend) GetDeviceInfo() DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	info := c.deviceInfo
	info.AllocatedMemory = c.allocated
	return info
}

// IsAvailable checks if the configured CUDA device exists
func (c *CUDABackend) IsAvailable() bool {
	return c.available
}

// Cleanup resets the device
func (c *CUDABackend) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil
	}

	c.logger.Debug("Cleaning up CUDA backend")

	if c.allocated != 0 {
		c.logger.Warn("Device images still allocated at cleanup", zap.Int64("bytes", c.allocated))
	}
	if err := cuda.SetDevice(c.device); err != nil {
		return err
	}
	if err := cuda.DeviceReset(); err != nil {
		return fmt.Errorf("failed to cleanup CUDA: %w", err)
	}

	c.initialized = false
	return nil
}

// checkDevice verifies that the configured ordinal names a CUDA device
func (c *CUDABackend) checkDevice() error {
	n, err := cuda.DeviceCount()
	if err != nil {
		return err
	}
	if c.device < 0 || c.device >= n {
		return fmt.Errorf("device ordinal %d out of range (%d devices)", c.device, n)
	}
	return nil
}
