package gpu

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// cpuPitchAlignment mirrors the row alignment of pitched device allocations.
const cpuPitchAlignment = 64

// cpuImage is a device image held in host memory by the CPU backend.
type cpuImage struct {
	owner *CPUBackend
	size  Size
	pitch int
	pix   []uint8
	freed bool
}

func (i *cpuImage) Size() Size { return i.size }
func (i *cpuImage) Pitch() int { return i.pitch }

// CPUBackend implements GPUBackend on the CPU for fallback
type CPUBackend struct {
	logger      *zap.Logger
	mu          sync.Mutex
	initialized bool
	allocated   int64
}

// NewCPUBackend creates a new CPU backend instance
func NewCPUBackend(logger *zap.Logger) *CPUBackend {
	return &CPUBackend{
		logger: logger,
	}
}

// Initialize prepares the CPU backend for use
func (c *CPUBackend) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	c.initialized = true
	c.logger.Info("CPU backend initialized")
	return nil
}

// Cleanup releases any resources (none for CPU backend)
func (c *CPUBackend) Cleanup() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = false
	return nil
}

// IsAvailable checks if the backend is available (always true for CPU)
func (c *CPUBackend) IsAvailable() bool {
	return true
}

// GetDeviceInfo returns device information for CPU
func (c *CPUBackend) GetDeviceInfo() DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DeviceInfo{
		Name:              fmt.Sprintf("CPU (%s)", runtime.GOARCH),
		Ordinal:           -1,
		AllocatedMemory:   c.allocated,
		ComputeCapability: "N/A",
		DriverVersion:     "N/A",
		RuntimeVersion:    "N/A",
		NPPVersion:        "N/A",
	}
}

// Upload copies src into a pitched buffer
func (c *CPUBackend) Upload(src *HostImage) (DeviceImage, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	img, err := c.alloc(src.Size())
	if err != nil {
		return nil, err
	}
	for y := 0; y < src.Height; y++ {
		copy(img.pix[y*img.pitch:], src.Row(y))
	}
	return img, nil
}

// Filter runs spec over src into a freshly allocated image
func (c *CPUBackend) Filter(src DeviceImage, spec FilterSpec) (DeviceImage, error) {
	in, err := c.own(src)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	k, err := maskFor(spec)
	if err != nil {
		return nil, err
	}
	out, err := c.alloc(in.size)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Applying CPU filter",
		zap.Stringer("op", spec.Op),
		zap.Stringer("mask", spec.Mask),
		zap.Stringer("size", in.size))

	k.apply(out.pix, out.pitch, in.pix, in.pitch, in.size)
	return out, nil
}

// Download copies img into a tightly packed host image
func (c *CPUBackend) Download(img DeviceImage) (*HostImage, error) {
	in, err := c.own(img)
	if err != nil {
		return nil, err
	}
	dst := NewHostImage(in.size.Width, in.size.Height)
	for y := 0; y < in.size.Height; y++ {
		copy(dst.Pix[y*dst.Pitch:(y+1)*dst.Pitch], in.pix[y*in.pitch:])
	}
	return dst, nil
}

// Free releases the buffer behind img
func (c *CPUBackend) Free(img DeviceImage) error {
	in, ok := img.(*cpuImage)
	if !ok || in.owner != c {
		return ErrForeignImage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if in.freed {
		return ErrDoubleFree
	}
	in.freed = true
	c.allocated -= int64(len(in.pix))
	in.pix = nil
	return nil
}

func (c *CPUBackend) alloc(size Size) (*cpuImage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, fmt.Errorf("CPU backend: %w", ErrNotInitialized)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %s", size)
	}
	pitch := (size.Width + cpuPitchAlignment - 1) / cpuPitchAlignment * cpuPitchAlignment
	img := &cpuImage{
		owner: c,
		size:  size,
		pitch: pitch,
		pix:   make([]uint8, pitch*size.Height),
	}
	c.allocated += int64(len(img.pix))
	return img, nil
}

func (c *CPUBackend) own(img DeviceImage) (*cpuImage, error) {
	in, ok := img.(*cpuImage)
	if !ok || in.owner != c {
		return nil, ErrForeignImage
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if in.freed {
		return nil, fmt.Errorf("use of freed device image: %w", ErrDoubleFree)
	}
	return in, nil
}
