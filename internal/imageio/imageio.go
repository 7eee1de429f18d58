// Package imageio reads and writes 8-bit grayscale images as host images.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fxnlabs/nppfilter/internal/gpu"
	"github.com/spakin/netpbm"
)

// ErrUnsupportedFormat is returned when no codec handles a file extension.
var ErrUnsupportedFormat = errors.New("unsupported image format")

func isNetpbm(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pgm", ".pnm":
		return true
	}
	return false
}

// CanSave reports whether Save has an encoder for the extension of path.
func CanSave(path string) bool {
	if isNetpbm(path) {
		return true
	}
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}

// Load decodes the image at path into a packed grayscale host image.
// PGM/PNM files go through the netpbm codec, anything else through imaging
// and is converted to luma.
func Load(path string) (*gpu.HostImage, error) {
	var img image.Image
	if isNetpbm(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		defer f.Close()

		img, err = netpbm.Decode(f, &netpbm.DecodeOptions{
			Target: netpbm.PGM,
			Exact:  false,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	} else {
		var err error
		img, err = imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
	}

	return gpu.HostImageFromGray(toGray(img)), nil
}

// Save encodes img to path. The format follows the extension; .pgm and .pnm
// are written as binary PGM with maxval 255.
func Save(path string, img *gpu.HostImage) error {
	if err := img.Validate(); err != nil {
		return err
	}
	gray := img.ToGray()

	if isNetpbm(path) {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := netpbm.Encode(f, gray, &netpbm.EncodeOptions{
			Format:   netpbm.PGM,
			MaxValue: 255,
		}); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode %s: %w", path, err)
		}
		return f.Close()
	}

	if !CanSave(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err := imaging.Save(gray, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// toGray converts any image to 8-bit luma with its origin at (0,0).
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Rect, img, b.Min, draw.Src)
	return gray
}

// FindFile locates a data file the way the CUDA samples do: the name as
// given, then each search directory, then data directories next to the
// executable. It returns "" when the file is nowhere to be found.
func FindFile(name string, dirs ...string) string {
	if name == "" {
		return ""
	}
	if isFile(name) {
		return name
	}
	if filepath.IsAbs(name) {
		return ""
	}

	candidates := make([]string, 0, len(dirs)+3)
	for _, dir := range dirs {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(exeDir, name),
			filepath.Join(exeDir, "data", name),
			filepath.Join(exeDir, "..", "data", name))
	}

	for _, c := range candidates {
		if isFile(c) {
			return c
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
