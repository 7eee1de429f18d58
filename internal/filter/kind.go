package filter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fxnlabs/nppfilter/internal/gpu"
	"github.com/fxnlabs/nppfilter/internal/imageio"
)

// ErrUnknownFilter is returned for a filter name outside the lookup table.
var ErrUnknownFilter = errors.New("unknown filter")

// Kind selects which filter the pipeline runs.
type Kind int

const (
	Unknown Kind = iota
	Box
	Gauss
)

var kinds = map[string]Kind{
	"box_filter":   Box,
	"gauss_filter": Gauss,
}

// Lookup maps a command-line filter name to its Kind. Names outside the
// table map to Unknown.
func Lookup(name string) Kind {
	return kinds[name]
}

// Names lists the accepted filter names.
func Names() []string {
	return []string{Box.String(), Gauss.String()}
}

func (k Kind) String() string {
	switch k {
	case Box:
		return "box_filter"
	case Gauss:
		return "gauss_filter"
	default:
		return "unknown"
	}
}

// Suffix is inserted before the extension of a derived output path.
func (k Kind) Suffix() string {
	switch k {
	case Box:
		return "_boxFilter"
	case Gauss:
		return "_gaussFilter"
	default:
		return ""
	}
}

// Options carries the mask sizes used for each kind.
type Options struct {
	BoxMaskSize   int
	GaussMaskSize int
}

// DefaultOptions is a 5x5 box and a 3x3 Gaussian.
func DefaultOptions() Options {
	return Options{BoxMaskSize: 5, GaussMaskSize: 3}
}

// SpecFor builds the centred, edge-replicating spec for kind.
func SpecFor(kind Kind, opts Options) (gpu.FilterSpec, error) {
	switch kind {
	case Box:
		return gpu.CenteredSpec(gpu.OpBoxFilter, opts.BoxMaskSize), nil
	case Gauss:
		return gpu.CenteredSpec(gpu.OpGaussFilter, opts.GaussMaskSize), nil
	default:
		return gpu.FilterSpec{}, fmt.Errorf("%w: %s", ErrUnknownFilter, kind)
	}
}

// OutputPath derives the output file name from the input path: the
// extension is stripped, the kind's suffix appended and the extension put
// back. When there is no extension, or no encoder for it, ".pgm" is used.
func OutputPath(input string, kind Kind) string {
	ext := filepath.Ext(input)
	// A leading dot in the base name is not an extension
	if ext == filepath.Base(input) {
		ext = ""
	}
	base := strings.TrimSuffix(input, ext)
	if ext == "" || !imageio.CanSave(ext) {
		ext = ".pgm"
	}
	return base + kind.Suffix() + ext
}
