//go:build cuda
// +build cuda

package cuda

/*
#cgo CFLAGS: -I/usr/local/cuda/include
#cgo LDFLAGS: -L/usr/local/cuda/lib64 -lcudart -lnppc -lnppif -lnppisu

#include <string.h>
#include <cuda_runtime.h>
#include <npp.h>

typedef struct {
	char name[256];
	size_t total_memory;
	int major;
	int minor;
	int multi_processor_count;
} npp_device_props;

static cudaError_t npp_get_device_props(int dev, npp_device_props *out) {
	struct cudaDeviceProp prop;
	cudaError_t err = cudaGetDeviceProperties(&prop, dev);
	if (err != cudaSuccess) {
		return err;
	}
	memcpy(out->name, prop.name, sizeof(out->name));
	out->name[sizeof(out->name) - 1] = 0;
	out->total_memory = prop.totalGlobalMem;
	out->major = prop.major;
	out->minor = prop.minor;
	out->multi_processor_count = prop.multiProcessorCount;
	return cudaSuccess;
}

static NppStatus npp_box_replicate(const Npp8u *src, int srcStep, int width, int height,
                                   Npp8u *dst, int dstStep,
                                   int maskW, int maskH, int anchorX, int anchorY) {
	NppiSize size = {width, height};
	NppiPoint offset = {0, 0};
	NppiSize mask = {maskW, maskH};
	NppiPoint anchor = {anchorX, anchorY};
	return nppiFilterBoxBorder_8u_C1R(src, srcStep, size, offset, dst, dstStep, size,
	                                  mask, anchor, NPP_BORDER_REPLICATE);
}

static NppStatus npp_gauss_replicate(const Npp8u *src, int srcStep, int width, int height,
                                     Npp8u *dst, int dstStep, NppiMaskSize mask) {
	NppiSize size = {width, height};
	NppiPoint offset = {0, 0};
	return nppiFilterGaussBorder_8u_C1R(src, srcStep, size, offset, dst, dstStep, size,
	                                    mask, NPP_BORDER_REPLICATE);
}
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"
)

// Status is a failing NppStatus code.
type Status int

func (s Status) Error() string {
	return fmt.Sprintf("NPP error status %d", int(s))
}

// DeviceProperties is the subset of cudaDeviceProp reported by the backend.
type DeviceProperties struct {
	Name                string
	TotalMemory         int64
	Major               int
	Minor               int
	MultiProcessorCount int
}

func cudaError(op string, err C.cudaError_t) error {
	if err == C.cudaSuccess {
		return nil
	}
	return fmt.Errorf("%s: %s (%d)", op, C.GoString(C.cudaGetErrorString(err)), int(err))
}

func nppError(op string, status C.NppStatus) error {
	// Positive codes are warnings; the output is still valid.
	if int(status) >= 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", op, Status(status))
}

// NPPVersion returns the version of the linked NPP library.
func NPPVersion() Version {
	v := C.nppGetLibVersion()
	return Version{Major: int(v.major), Minor: int(v.minor), Build: int(v.build)}
}

// DriverVersion returns the CUDA driver version integer.
func DriverVersion() (int, error) {
	var v C.int
	if err := cudaError("cudaDriverGetVersion", C.cudaDriverGetVersion(&v)); err != nil {
		return 0, err
	}
	return int(v), nil
}

// RuntimeVersion returns the CUDA runtime version integer.
func RuntimeVersion() (int, error) {
	var v C.int
	if err := cudaError("cudaRuntimeGetVersion", C.cudaRuntimeGetVersion(&v)); err != nil {
		return 0, err
	}
	return int(v), nil
}

// DeviceCount returns the number of CUDA devices visible to the process.
func DeviceCount() (int, error) {
	var n C.int
	if err := cudaError("cudaGetDeviceCount", C.cudaGetDeviceCount(&n)); err != nil {
		return 0, err
	}
	return int(n), nil
}

// SetDevice makes ordinal the current device of the calling thread.
func SetDevice(ordinal int) error {
	return cudaError("cudaSetDevice", C.cudaSetDevice(C.int(ordinal)))
}

// GetDeviceProperties queries the properties of device ordinal.
func GetDeviceProperties(ordinal int) (*DeviceProperties, error) {
	var p C.npp_device_props
	if err := cudaError("cudaGetDeviceProperties", C.npp_get_device_props(C.int(ordinal), &p)); err != nil {
		return nil, err
	}
	return &DeviceProperties{
		Name:                C.GoString(&p.name[0]),
		TotalMemory:         int64(p.total_memory),
		Major:               int(p.major),
		Minor:               int(p.minor),
		MultiProcessorCount: int(p.multi_processor_count),
	}, nil
}

// MemInfo returns free and total device memory in bytes.
func MemInfo() (free, total int64, err error) {
	var f, t C.size_t
	if err := cudaError("cudaMemGetInfo", C.cudaMemGetInfo(&f, &t)); err != nil {
		return 0, 0, err
	}
	return int64(f), int64(t), nil
}

// DeviceReset destroys the primary context of the current device.
func DeviceReset() error {
	return cudaError("cudaDeviceReset", C.cudaDeviceReset())
}

// Image8u is a pitched single-channel 8-bit device buffer.
type Image8u struct {
	ptr    *C.Npp8u
	Width  int
	Height int
	Pitch  int
}

// Malloc8u allocates a pitched device image with nppiMalloc_8u_C1.
func Malloc8u(width, height int) (*Image8u, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	var step C.int
	ptr := C.nppiMalloc_8u_C1(C.int(width), C.int(height), &step)
	if ptr == nil {
		return nil, errors.New("nppiMalloc_8u_C1: out of device memory")
	}
	return &Image8u{ptr: ptr, Width: width, Height: height, Pitch: int(step)}, nil
}

// Bytes is the size of the allocation including row padding.
func (i *Image8u) Bytes() int64 {
	return int64(i.Pitch) * int64(i.Height)
}

// Free releases the device buffer. Calling Free twice is a no-op.
func (i *Image8u) Free() {
	if i.ptr == nil {
		return
	}
	C.nppiFree(unsafe.Pointer(i.ptr))
	i.ptr = nil
}

// Upload copies Height rows of Width bytes from src, whose rows are srcPitch apart.
func (i *Image8u) Upload(src []byte, srcPitch int) error {
	if len(src) < srcPitch*(i.Height-1)+i.Width {
		return fmt.Errorf("source buffer too short: %d bytes", len(src))
	}
	return cudaError("cudaMemcpy2D", C.cudaMemcpy2D(
		unsafe.Pointer(i.ptr), C.size_t(i.Pitch),
		unsafe.Pointer(&src[0]), C.size_t(srcPitch),
		C.size_t(i.Width), C.size_t(i.Height),
		C.cudaMemcpyHostToDevice))
}

// Download copies the image into dst, whose rows are dstPitch apart.
func (i *Image8u) Download(dst []byte, dstPitch int) error {
	if len(dst) < dstPitch*(i.Height-1)+i.Width {
		return fmt.Errorf("destination buffer too short: %d bytes", len(dst))
	}
	return cudaError("cudaMemcpy2D", C.cudaMemcpy2D(
		unsafe.Pointer(&dst[0]), C.size_t(dstPitch),
		unsafe.Pointer(i.ptr), C.size_t(i.Pitch),
		C.size_t(i.Width), C.size_t(i.Height),
		C.cudaMemcpyDeviceToHost))
}

// FilterBoxReplicate runs nppiFilterBoxBorder_8u_C1R over the whole of src
// with replicated borders.
func FilterBoxReplicate(src, dst *Image8u, maskW, maskH, anchorX, anchorY int) error {
	status := C.npp_box_replicate(
		src.ptr, C.int(src.Pitch), C.int(src.Width), C.int(src.Height),
		dst.ptr, C.int(dst.Pitch),
		C.int(maskW), C.int(maskH), C.int(anchorX), C.int(anchorY))
	return nppError("nppiFilterBoxBorder_8u_C1R", status)
}

// FilterGaussReplicate runs nppiFilterGaussBorder_8u_C1R with an n x n mask
// and replicated borders.
func FilterGaussReplicate(src, dst *Image8u, n int) error {
	var mask C.NppiMaskSize
	switch n {
	case 3:
		mask = C.NPP_MASK_SIZE_3_X_3
	case 5:
		mask = C.NPP_MASK_SIZE_5_X_5
	case 7:
		mask = C.NPP_MASK_SIZE_7_X_7
	case 9:
		mask = C.NPP_MASK_SIZE_9_X_9
	case 11:
		mask = C.NPP_MASK_SIZE_11_X_11
	case 13:
		mask = C.NPP_MASK_SIZE_13_X_13
	case 15:
		mask = C.NPP_MASK_SIZE_15_X_15
	default:
		return fmt.Errorf("nppiFilterGaussBorder_8u_C1R: no %dx%d mask", n, n)
	}
	status := C.npp_gauss_replicate(
		src.ptr, C.int(src.Pitch), C.int(src.Width), C.int(src.Height),
		dst.ptr, C.int(dst.Pitch), mask)
	return nppError("nppiFilterGaussBorder_8u_C1R", status)
}
