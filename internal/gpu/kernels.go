package gpu

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// kernel is an integer convolution mask. Output pixels are
// round(sum(weight*src) / divisor).
type kernel struct {
	size    Size
	anchor  Point
	weights []int32 // row-major, size.Width*size.Height
	divisor int64
}

// gauss5x5 is the fixed 5x5 Gaussian mask NPP documents for FilterGauss.
var gauss5x5 = []float64{
	2, 7, 12, 7, 2,
	7, 31, 52, 31, 7,
	12, 52, 127, 52, 12,
	7, 31, 52, 31, 7,
	2, 7, 12, 7, 2,
}

// maskFor builds the CPU convolution mask for spec. spec must already be valid.
func maskFor(spec FilterSpec) (*kernel, error) {
	var m mat.Matrix
	anchor := spec.Anchor

	switch spec.Op {
	case OpBoxFilter:
		ones := make([]float64, spec.Mask.Width*spec.Mask.Height)
		for i := range ones {
			ones[i] = 1
		}
		m = mat.NewDense(spec.Mask.Height, spec.Mask.Width, ones)
	case OpGaussFilter:
		switch spec.Mask.Width {
		case 3:
			v := mat.NewVecDense(3, []float64{1, 2, 1})
			var outer mat.Dense
			outer.Outer(1, v, v)
			m = &outer
		case 5:
			m = mat.NewDense(5, 5, gauss5x5)
		default:
			return nil, fmt.Errorf("%w: cpu gaussian supports 3x3 and 5x5, got %s", ErrUnsupportedMask, spec.Mask)
		}
		anchor = Point{X: spec.Mask.Width / 2, Y: spec.Mask.Height / 2}
	default:
		return nil, fmt.Errorf("unknown filter %s", spec.Op)
	}

	return newKernel(m, anchor), nil
}

func newKernel(m mat.Matrix, anchor Point) *kernel {
	rows, cols := m.Dims()
	k := &kernel{
		size:    Size{Width: cols, Height: rows},
		anchor:  anchor,
		weights: make([]int32, rows*cols),
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			w := int32(m.At(y, x))
			k.weights[y*cols+x] = w
			k.divisor += int64(w)
		}
	}
	return k
}

// apply convolves src into dst with replicated borders. Both buffers are
// pitched; size is the logical extent shared by both.
func (k *kernel) apply(dst []uint8, dstPitch int, src []uint8, srcPitch int, size Size) {
	half := k.divisor / 2
	for y := 0; y < size.Height; y++ {
		out := dst[y*dstPitch : y*dstPitch+size.Width]
		for x := 0; x < size.Width; x++ {
			// int64: 255*W*H overflows int32 for masks past ~2900x2900
			var sum int64
			for ky := 0; ky < k.size.Height; ky++ {
				sy := clamp(y-k.anchor.Y+ky, size.Height)
				row := src[sy*srcPitch:]
				w := k.weights[ky*k.size.Width : (ky+1)*k.size.Width]
				for kx, weight := range w {
					sx := clamp(x-k.anchor.X+kx, size.Width)
					sum += int64(weight) * int64(row[sx])
				}
			}
			out[x] = uint8((sum + half) / k.divisor)
		}
	}
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
