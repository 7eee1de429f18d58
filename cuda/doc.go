// Package cuda binds the parts of the CUDA runtime and the NPP image
// filtering primitives used by the nppfilter CUDA backend. The cgo bindings
// are only compiled with the cuda build tag; the helpers in this file are
// always available.
package cuda

import (
	"fmt"
	"slices"
)

// GaussMaskSizes lists the square mask sizes nppiFilterGaussBorder accepts.
var GaussMaskSizes = []int{3, 5, 7, 9, 11, 13, 15}

// SupportsGaussMask reports whether NPP has a Gaussian kernel of size n x n.
func SupportsGaussMask(n int) bool {
	return slices.Contains(GaussMaskSizes, n)
}

// Version is an NPP library version.
type Version struct {
	Major int
	Minor int
	Build int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// FormatCUDAVersion renders a version integer as returned by
// cudaDriverGetVersion / cudaRuntimeGetVersion (1000*major + 10*minor).
func FormatCUDAVersion(v int) string {
	return fmt.Sprintf("%d.%d", v/1000, (v%100)/10)
}
