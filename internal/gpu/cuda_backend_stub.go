//go:build !cuda
// +build !cuda

package gpu

import "go.uber.org/zap"

// CUDABackend is a stub type when CUDA is not available
type CUDABackend struct {
	logger *zap.Logger
	device int
}

// NewCUDABackend returns a backend that always reports itself unavailable
func NewCUDABackend(logger *zap.Logger, device int) *CUDABackend {
	return &CUDABackend{logger: logger, device: device}
}

func (c *CUDABackend) Upload(*HostImage) (DeviceImage, error) {
	return nil, ErrBackendUnavailable
}

func (c *CUDABackend) Filter(DeviceImage, FilterSpec) (DeviceImage, error) {
	return nil, ErrBackendUnavailable
}

func (c *CUDABackend) Download(DeviceImage) (*HostImage, error) {
	return nil, ErrBackendUnavailable
}

func (c *CUDABackend) Free(DeviceImage) error {
	return ErrBackendUnavailable
}

func (c *CUDABackend) GetDeviceInfo() DeviceInfo {
	return DeviceInfo{Name: "CUDA not available", Ordinal: c.device}
}

func (c *CUDABackend) IsAvailable() bool {
	return false
}

func (c *CUDABackend) Initialize() error {
	return ErrBackendUnavailable
}

func (c *CUDABackend) Cleanup() error {
	return nil
}
