package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable is returned when a requested backend cannot be used.
	ErrBackendUnavailable = errors.New("backend not available")
	// ErrNotInitialized is returned when a backend is used before Initialize.
	ErrNotInitialized = errors.New("backend not initialized")
	// ErrUnsupportedBorder is returned for border modes other than replicate.
	ErrUnsupportedBorder = errors.New("unsupported border mode")
	// ErrUnsupportedMask is returned when a backend has no kernel for a mask size.
	ErrUnsupportedMask = errors.New("unsupported mask size")
	// ErrDoubleFree is returned when a device image is freed twice.
	ErrDoubleFree = errors.New("device image already freed")
	// ErrForeignImage is returned when a device image is handed to a backend
	// that did not create it.
	ErrForeignImage = errors.New("device image belongs to another backend")
)

// Operation selects the filter primitive.
type Operation int

const (
	OpBoxFilter Operation = iota + 1
	OpGaussFilter
)

func (o Operation) String() string {
	switch o {
	case OpBoxFilter:
		return "box"
	case OpGaussFilter:
		return "gauss"
	default:
		return fmt.Sprintf("operation(%d)", int(o))
	}
}

// BorderMode controls how pixels outside the source are sampled.
type BorderMode int

const (
	// BorderReplicate returns the nearest in-bounds edge pixel.
	BorderReplicate BorderMode = iota
	BorderConstant
	BorderMirror
)

func (b BorderMode) String() string {
	switch b {
	case BorderReplicate:
		return "replicate"
	case BorderConstant:
		return "constant"
	case BorderMirror:
		return "mirror"
	default:
		return fmt.Sprintf("border(%d)", int(b))
	}
}

// FilterSpec describes one filter invocation. For Gaussian filters the mask
// must be square and the anchor is always its centre.
type FilterSpec struct {
	Op     Operation
	Mask   Size
	Anchor Point
	Border BorderMode
}

// CenteredSpec returns a spec with a square mask anchored at its centre and
// replicated borders.
func CenteredSpec(op Operation, mask int) FilterSpec {
	return FilterSpec{
		Op:     op,
		Mask:   Size{Width: mask, Height: mask},
		Anchor: Point{X: mask / 2, Y: mask / 2},
		Border: BorderReplicate,
	}
}

// Validate checks the parts of a spec that do not depend on the backend.
func (s FilterSpec) Validate() error {
	if s.Op != OpBoxFilter && s.Op != OpGaussFilter {
		return fmt.Errorf("unknown filter %s", s.Op)
	}
	if s.Border != BorderReplicate {
		return fmt.Errorf("%w: %s", ErrUnsupportedBorder, s.Border)
	}
	if s.Mask.Width < 1 || s.Mask.Height < 1 {
		return fmt.Errorf("%w: %s", ErrUnsupportedMask, s.Mask)
	}
	if s.Anchor.X < 0 || s.Anchor.X >= s.Mask.Width || s.Anchor.Y < 0 || s.Anchor.Y >= s.Mask.Height {
		return fmt.Errorf("anchor (%d,%d) outside %s mask", s.Anchor.X, s.Anchor.Y, s.Mask)
	}
	if s.Op == OpGaussFilter {
		if s.Mask.Width != s.Mask.Height || s.Mask.Width%2 == 0 {
			return fmt.Errorf("%w: gaussian mask must be square and odd, got %s", ErrUnsupportedMask, s.Mask)
		}
	}
	return nil
}
