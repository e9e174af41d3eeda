// Package features implements the dense feature-extraction functions applied
// to normalized grayscale images before texture sampling.
//
// A feature function is referenced by its registry name everywhere it has to
// be persisted, so a fitted texture model can recover the exact function used
// at training time.
package features

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/YuminosukeSato/itwmm/core/parallel"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/raster"
)

// Func maps a single channel intensity image to a dense feature image of the
// same size.
type Func func(img *raster.Image) (*raster.Image, error)

// Standard feature names.
const (
	NoOp      = "no_op"
	Gradient  = "gradient"
	IGO       = "igo"
	DoubleIGO = "double_igo"
)

// parallelThreshold is the row count below which extraction stays sequential.
const parallelThreshold = 64

var registry = struct {
	sync.RWMutex
	funcs map[string]Func
}{funcs: map[string]Func{
	NoOp:      noOp,
	Gradient:  gradient,
	IGO:       func(img *raster.Image) (*raster.Image, error) { return igo(img, false) },
	DoubleIGO: func(img *raster.Image) (*raster.Image, error) { return igo(img, true) },
}}

// Register adds fn under name, replacing any previous entry.
func Register(name string, fn Func) {
	registry.Lock()
	defer registry.Unlock()
	registry.funcs[name] = fn
}

// Lookup returns the function registered under name.
func Lookup(name string) (Func, error) {
	registry.RLock()
	defer registry.RUnlock()
	fn, ok := registry.funcs[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownFeature, "%q (known: %v)", name, namesLocked())
	}
	return fn, nil
}

// Names lists the registered feature names in sorted order.
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry.funcs))
	for n := range registry.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func requireSingleChannel(op string, img *raster.Image) error {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return errors.Wrap(errors.ErrEmptyData, op)
	}
	if img.Channels != 1 {
		return errors.NewDimensionError(op, 1, img.Channels, 1)
	}
	return nil
}

func noOp(img *raster.Image) (*raster.Image, error) {
	if err := requireSingleChannel("features.no_op", img); err != nil {
		return nil, err
	}
	out := raster.New(img.Width, img.Height, 1)
	copy(out.Pix, img.Pix)
	return out, nil
}

// derivatives returns the central difference derivatives along x and y,
// one-sided at the borders.
func derivatives(img *raster.Image, x, y int) (dx, dy float64) {
	w, h := img.Width, img.Height
	switch {
	case w == 1:
		dx = 0
	case x == 0:
		dx = img.At(1, y, 0) - img.At(0, y, 0)
	case x == w-1:
		dx = img.At(w-1, y, 0) - img.At(w-2, y, 0)
	default:
		dx = (img.At(x+1, y, 0) - img.At(x-1, y, 0)) / 2
	}
	switch {
	case h == 1:
		dy = 0
	case y == 0:
		dy = img.At(x, 1, 0) - img.At(x, 0, 0)
	case y == h-1:
		dy = img.At(x, h-1, 0) - img.At(x, h-2, 0)
	default:
		dy = (img.At(x, y+1, 0) - img.At(x, y-1, 0)) / 2
	}
	return dx, dy
}

// gradient produces two channels: d/dx and d/dy.
func gradient(img *raster.Image) (*raster.Image, error) {
	if err := requireSingleChannel("features.gradient", img); err != nil {
		return nil, err
	}
	out := raster.New(img.Width, img.Height, 2)
	parallel.ParallelizeWithThreshold(img.Height, parallelThreshold, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < img.Width; x++ {
				dx, dy := derivatives(img, x, y)
				px := out.Pixel(x, y)
				px[0], px[1] = dx, dy
			}
		}
	})
	return out, nil
}

// igo produces image gradient orientation features: cos φ, sin φ and, when
// double is set, cos 2φ, sin 2φ, where φ = atan2(dy, dx). Flat regions get
// φ = 0.
func igo(img *raster.Image, double bool) (*raster.Image, error) {
	if err := requireSingleChannel(fmt.Sprintf("features.%s", igoName(double)), img); err != nil {
		return nil, err
	}
	channels := 2
	if double {
		channels = 4
	}
	out := raster.New(img.Width, img.Height, channels)
	parallel.ParallelizeWithThreshold(img.Height, parallelThreshold, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < img.Width; x++ {
				dx, dy := derivatives(img, x, y)
				phi := math.Atan2(dy, dx)
				px := out.Pixel(x, y)
				px[0], px[1] = math.Cos(phi), math.Sin(phi)
				if double {
					px[2], px[3] = math.Cos(2*phi), math.Sin(2*phi)
				}
			}
		}
	})
	return out, nil
}

func igoName(double bool) string {
	if double {
		return DoubleIGO
	}
	return IGO
}
