package gpu

import "fmt"

// Size is an extent in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Point is a pixel offset.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// HostImage is a single-channel 8-bit image in CPU memory. Row y starts at
// Pix[y*Pitch]; Pitch is at least Width.
type HostImage struct {
	Width  int
	Height int
	Pitch  int
	Pix    []uint8
}

// NewHostImage allocates a zeroed, tightly packed host image.
func NewHostImage(width, height int) *HostImage {
	return &HostImage{
		Width:  width,
		Height: height,
		Pitch:  width,
		Pix:    make([]uint8, width*height),
	}
}

// Size returns the logical extent of the image.
func (h *HostImage) Size() Size {
	return Size{Width: h.Width, Height: h.Height}
}

// Row returns the Width pixels of row y.
func (h *HostImage) Row(y int) []uint8 {
	off := y * h.Pitch
	return h.Pix[off : off+h.Width]
}

// At returns the pixel at (x, y).
func (h *HostImage) At(x, y int) uint8 {
	return h.Pix[y*h.Pitch+x]
}

// Set stores v at (x, y).
func (h *HostImage) Set(x, y int, v uint8) {
	h.Pix[y*h.Pitch+x] = v
}

// Validate checks that the header and the pixel buffer agree.
func (h *HostImage) Validate() error {
	if h == nil {
		return fmt.Errorf("host image is nil")
	}
	if h.Width <= 0 || h.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", h.Width, h.Height)
	}
	if h.Pitch < h.Width {
		return fmt.Errorf("pitch %d is smaller than width %d", h.Pitch, h.Width)
	}
	if need := h.Pitch*(h.Height-1) + h.Width; len(h.Pix) < need {
		return fmt.Errorf("pixel buffer too short: need %d bytes, got %d", need, len(h.Pix))
	}
	return nil
}

// DeviceImage is an image resident in backend-owned memory. Its row pitch
// may exceed the logical row width.
type DeviceImage interface {
	Size() Size
	Pitch() int
}
