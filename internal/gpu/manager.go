package gpu

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Backend preferences accepted by NewManager.
const (
	PreferAuto = "auto"
	PreferCUDA = "cuda"
	PreferCPU  = "cpu"
)

// Options controls backend selection.
type Options struct {
	// Preference is one of PreferAuto, PreferCUDA or PreferCPU. Empty means auto.
	Preference string
	// Device is the CUDA device ordinal.
	Device int
}

// Manager handles backend selection and lifecycle
type Manager struct {
	backend GPUBackend
	mu      sync.RWMutex
	logger  *zap.Logger
	opts    Options
}

// NewManager creates a new manager and selects the best available backend
func NewManager(logger *zap.Logger, opts Options) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Preference == "" {
		opts.Preference = PreferAuto
	}

	m := &Manager{
		logger: logger,
		opts:   opts,
	}

	if err := m.detectAndInitialize(); err != nil {
		return nil, err
	}

	return m, nil
}

// detectAndInitialize detects available backends and initializes the best one
func (m *Manager) detectAndInitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.opts.Preference {
	case PreferAuto, PreferCUDA, PreferCPU:
	default:
		return fmt.Errorf("unknown backend preference %q", m.opts.Preference)
	}

	if m.opts.Preference != PreferCPU {
		// Only non-nil when built with the cuda tag
		if cudaBackend := m.tryCreateCUDABackend(); cudaBackend != nil {
			if cudaBackend.IsAvailable() {
				err := cudaBackend.Initialize()
				if err == nil {
					m.backend = cudaBackend
					return nil
				}
				_ = cudaBackend.Cleanup()
				m.logger.Warn("CUDA backend failed to initialize", zap.Error(err))
				if m.opts.Preference == PreferCUDA {
					return fmt.Errorf("failed to initialize CUDA backend: %w", err)
				}
			}
		}
		if m.opts.Preference == PreferCUDA {
			return fmt.Errorf("CUDA device %d: %w", m.opts.Device, ErrBackendUnavailable)
		}
	}

	cpuBackend := NewCPUBackend(m.logger)
	if err := cpuBackend.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize CPU backend: %w", err)
	}
	m.backend = cpuBackend
	return nil
}

// GetBackend returns the current backend
func (m *Manager) GetBackend() GPUBackend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backend
}

func (m *Manager) active() (GPUBackend, error) {
	backend := m.GetBackend()
	if backend == nil {
		return nil, fmt.Errorf("no backend: %w", ErrBackendUnavailable)
	}
	return backend, nil
}

// Upload copies a host image to the selected backend
func (m *Manager) Upload(src *HostImage) (DeviceImage, error) {
	backend, err := m.active()
	if err != nil {
		return nil, err
	}
	return backend.Upload(src)
}

// Filter applies spec on the selected backend
func (m *Manager) Filter(src DeviceImage, spec FilterSpec) (DeviceImage, error) {
	backend, err := m.active()
	if err != nil {
		return nil, err
	}
	return backend.Filter(src, spec)
}

// Download copies a device image back to the host
func (m *Manager) Download(src DeviceImage) (*HostImage, error) {
	backend, err := m.active()
	if err != nil {
		return nil, err
	}
	return backend.Download(src)
}

// Free releases a device image on the selected backend
func (m *Manager) Free(img DeviceImage) error {
	backend, err := m.active()
	if err != nil {
		return err
	}
	return backend.Free(img)
}

// GetDeviceInfo returns device information from the current backend
func (m *Manager) GetDeviceInfo() DeviceInfo {
	backend := m.GetBackend()
	if backend == nil {
		return DeviceInfo{Name: "No backend available"}
	}
	return backend.GetDeviceInfo()
}

// IsGPUAvailable returns true if a GPU backend is active
func (m *Manager) IsGPUAvailable() bool {
	backend := m.GetBackend()
	if backend == nil {
		return false
	}
	_, isCPU := backend.(*CPUBackend)
	return !isCPU
}

// Cleanup releases resources held by the current backend
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		if err := m.backend.Cleanup(); err != nil {
			return err
		}
		m.backend = nil
	}
	return nil
}

// GetBackendType returns a string describing the current backend type
func (m *Manager) GetBackendType() string {
	backend := m.GetBackend()
	if backend == nil {
		return "none"
	}
	if _, isCPU := backend.(*CPUBackend); isCPU {
		return PreferCPU
	}
	return PreferCUDA
}
