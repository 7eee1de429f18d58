package gpu

import "image"

// HostImageFromGray copies a *image.Gray into a tightly packed host image.
// The gray image's bounds need not start at the origin.
func HostImageFromGray(src *image.Gray) *HostImage {
	b := src.Bounds()
	dst := NewHostImage(b.Dx(), b.Dy())
	for y := 0; y < dst.Height; y++ {
		off := src.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[y*dst.Pitch:(y+1)*dst.Pitch], src.Pix[off:off+dst.Width])
	}
	return dst
}

// ToGray copies the host image into a new *image.Gray anchored at the origin.
func (h *HostImage) ToGray() *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, h.Width, h.Height))
	for y := 0; y < h.Height; y++ {
		copy(dst.Pix[y*dst.Stride:], h.Row(y))
	}
	return dst
}
