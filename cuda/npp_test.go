//go:build cuda
// +build cuda

package cuda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireDevice(t *testing.T) {
	t.Helper()
	n, err := DeviceCount()
	if err != nil || n == 0 {
		t.Skipf("No suitable CUDA device: %v", err)
	}
	require.NoError(t, SetDevice(0))
}

func TestVersions(t *testing.T) {
	requireDevice(t)

	v := NPPVersion()
	assert.Greater(t, v.Major, 0)

	driver, err := DriverVersion()
	require.NoError(t, err)
	assert.Greater(t, driver, 0)

	runtime, err := RuntimeVersion()
	require.NoError(t, err)
	assert.Greater(t, runtime, 0)
}

func TestImage8uRoundTrip(t *testing.T) {
	requireDevice(t)

	const w, h = 37, 11
	img, err := Malloc8u(w, h)
	require.NoError(t, err)
	defer img.Free()
	assert.GreaterOrEqual(t, img.Pitch, w)

	src := make([]byte, w*h)
	for i := range src {
		src[i] = byte(i * 7)
	}
	require.NoError(t, img.Upload(src, w))

	dst := make([]byte, w*h)
	require.NoError(t, img.Download(dst, w))
	assert.Equal(t, src, dst)
}

func TestFiltersKeepConstantImage(t *testing.T) {
	requireDevice(t)

	const w, h = 16, 9
	src := make([]byte, w*h)
	for i := range src {
		src[i] = 90
	}

	in, err := Malloc8u(w, h)
	require.NoError(t, err)
	defer in.Free()
	out, err := Malloc8u(w, h)
	require.NoError(t, err)
	defer out.Free()
	require.NoError(t, in.Upload(src, w))

	dst := make([]byte, w*h)

	require.NoError(t, FilterBoxReplicate(in, out, 5, 5, 2, 2))
	require.NoError(t, out.Download(dst, w))
	assert.Equal(t, src, dst)

	require.NoError(t, FilterGaussReplicate(in, out, 3))
	require.NoError(t, out.Download(dst, w))
	assert.Equal(t, src, dst)

	assert.Error(t, FilterGaussReplicate(in, out, 4))
}
