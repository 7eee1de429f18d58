package gpu

// DeviceInfo contains information about the device behind a backend
type DeviceInfo struct {
	Name              string `json:"name"`
	Ordinal           int    `json:"ordinal"`
	TotalMemory       int64  `json:"totalMemory"`     // in bytes
	AvailableMemory   int64  `json:"availableMemory"` // in bytes
	AllocatedMemory   int64  `json:"allocatedMemory"` // bytes held by live device images
	ComputeCapability string `json:"computeCapability"`
	DriverVersion     string `json:"driverVersion"`
	RuntimeVersion    string `json:"runtimeVersion,omitempty"`
	NPPVersion        string `json:"nppVersion,omitempty"`
}

// GPUBackend defines the interface for image filtering backends.
// A backend owns the device memory behind every DeviceImage it returns;
// callers hand images back through Free when they are done with them.
//
// Implementation notes:
// - Automatic fallback to CPU is handled by the Manager, not the backend
// - A DeviceImage may only be passed back to the backend that created it
// - Free must be called exactly once per DeviceImage
type GPUBackend interface {
	// Upload allocates a pitched device buffer sized to src and copies
	// the host rows into it.
	Upload(src *HostImage) (DeviceImage, error)

	// Filter allocates a destination image of the same size as src and
	// applies the filter described by spec. src is left untouched.
	Filter(src DeviceImage, spec FilterSpec) (DeviceImage, error)

	// Download copies a device image into a tightly packed host image.
	Download(src DeviceImage) (*HostImage, error)

	// Free releases the device buffer behind img.
	Free(img DeviceImage) error

	// GetDeviceInfo returns information about the device
	GetDeviceInfo() DeviceInfo

	// IsAvailable performs a quick probe without heavy initialization
	IsAvailable() bool

	// Initialize prepares the backend for use. It is idempotent.
	Initialize() error

	// Cleanup releases any resources held by the backend
	Cleanup() error
}
