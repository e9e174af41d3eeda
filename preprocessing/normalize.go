// Package preprocessing aligns image/fit pairs to a common scale and turns the
// image into a dense feature image.
//
// The image and the mesh are always cropped and rescaled together, so mesh
// vertex coordinates keep addressing the same image content.
package preprocessing

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/YuminosukeSato/itwmm/dataset"
	"github.com/YuminosukeSato/itwmm/features"
	"github.com/YuminosukeSato/itwmm/lazy"
	"github.com/YuminosukeSato/itwmm/mesh"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
	"github.com/YuminosukeSato/itwmm/raster"
)

// Defaults.
const (
	DefaultDiagonalRange  = 100.0
	DefaultCropProportion = 0.2
)

// Normalized is a sample after alignment and feature extraction.
type Normalized struct {
	Path     string
	Features *raster.Image
	Fit      *mesh.TriMesh
	// Scale is the factor applied after cropping.
	Scale float64
	// CropOffset is the top-left corner of the crop in the original image.
	CropOffset image.Point
}

// Normalizer crops, blurs, rescales and extracts features.
type Normalizer struct {
	DiagonalRange float64
	// CropProportion pads the mesh bounds by this fraction of their larger
	// side before cropping. Negative disables cropping.
	CropProportion float64
	// BlurSigma is the Gaussian blur applied before rescaling. Zero disables it.
	BlurSigma   float64
	Feature     features.Func
	FeatureName string

	logger log.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCropProportion sets the crop padding. Negative disables cropping.
func WithCropProportion(p float64) Option {
	return func(n *Normalizer) { n.CropProportion = p }
}

// WithBlurSigma sets the Gaussian blur sigma.
func WithBlurSigma(sigma float64) Option {
	return func(n *Normalizer) { n.BlurSigma = sigma }
}

// WithFeature selects the feature function by registry name.
func WithFeature(name string) Option {
	return func(n *Normalizer) { n.FeatureName = name }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(n *Normalizer) { n.logger = logger }
}

// NewNormalizer returns a Normalizer rescaling meshes to diagonalRange. The
// feature defaults to features.IGO.
func NewNormalizer(diagonalRange float64, opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		DiagonalRange:  diagonalRange,
		CropProportion: DefaultCropProportion,
		FeatureName:    features.IGO,
		logger:         log.GetLoggerWithName("preprocessing"),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.DiagonalRange <= 0 || math.IsNaN(n.DiagonalRange) || math.IsInf(n.DiagonalRange, 0) {
		return nil, errors.NewValidationError("diagonal_range", "must be positive and finite", n.DiagonalRange)
	}
	if n.BlurSigma < 0 {
		return nil, errors.NewValidationError("blur_sigma", "must not be negative", n.BlurSigma)
	}
	fn, err := features.Lookup(n.FeatureName)
	if err != nil {
		return nil, err
	}
	n.Feature = fn
	return n, nil
}

// Normalize aligns one sample.
func (n *Normalizer) Normalize(s *dataset.Sample) (*Normalized, error) {
	if s == nil || s.Image == nil || s.Fit == nil {
		return nil, errors.Wrap(errors.ErrEmptyData, "Normalize")
	}

	var img image.Image = s.Image
	fit := s.Fit
	var offset image.Point

	if err := fit.CheckFinite(); err != nil {
		return nil, errors.Wrapf(err, "Normalize %s", s.Path)
	}
	// 平行移動では対角長は変わらないので、crop の前に検査する
	diag := fit.Diagonal()
	if !(diag > 0) || math.IsInf(diag, 0) {
		return nil, errors.NewValueError("Normalize", fmt.Sprintf("degenerate mesh with diagonal %v: %s", diag, s.Path))
	}

	if n.CropProportion >= 0 {
		rect := cropRect(fit, s.Image.Bounds(), n.CropProportion)
		if rect.Empty() {
			return nil, errors.NewValueError("Normalize", "mesh lies outside the image: "+s.Path)
		}
		img = imaging.Crop(img, rect)
		offset = rect.Min.Sub(s.Image.Bounds().Min)
		fit = fit.Translated(-float64(offset.X), -float64(offset.Y))
	}
	if n.BlurSigma > 0 {
		img = imaging.Blur(img, n.BlurSigma)
	}

	scale := n.DiagonalRange / diag

	rescaled := raster.Rescale(raster.ToGray(img), scale)
	fit = fit.Scaled(scale)

	feat, err := n.Feature(raster.FromGray(rescaled))
	if err != nil {
		return nil, errors.Wrapf(err, "feature %s on %s", n.FeatureName, s.Path)
	}

	n.logger.Debug("Sample normalized",
		log.ImagePathKey, s.Path,
		log.ScaleKey, scale,
		log.WidthKey, feat.Width,
		log.HeightKey, feat.Height,
		log.ChannelsKey, feat.Channels,
	)
	return &Normalized{Path: s.Path, Features: feat, Fit: fit, Scale: scale, CropOffset: offset}, nil
}

// NormalizeList lazily normalizes every sample of samples.
func (n *Normalizer) NormalizeList(samples *lazy.List[*dataset.Sample]) *lazy.List[*Normalized] {
	return lazy.Map(samples, n.Normalize)
}

// cropRect pads the mesh bounds by proportion of their larger side, rounds
// outward to whole pixels and clips to the image.
func cropRect(fit *mesh.TriMesh, bounds image.Rectangle, proportion float64) image.Rectangle {
	b := fit.Bounds2D()
	size := b.Size()
	pad := proportion * math.Max(size.X, size.Y)
	r := image.Rect(
		int(math.Floor(b.X.Lo-pad)),
		int(math.Floor(b.Y.Lo-pad)),
		int(math.Ceil(b.X.Hi+pad))+1,
		int(math.Ceil(b.Y.Hi+pad))+1,
	)
	return r.Add(bounds.Min).Intersect(bounds)
}
