// Package dataset loads paired in-the-wild images and their 3D mesh fits.
//
// Images live under ImageRoot and fits under FitRoot with the same relative
// path and a different extension:
//
//	images/afw/0001.jpg  ->  fits/afw/0001.txt
//
// A fit file is a 3×N numeric text matrix holding the raw x, y and z rows of
// the fitted shape. Raw coordinates are one-based with y pointing up and z
// toward the viewer; Load converts them to the pixel-aligned convention of
// package mesh.
package dataset

import (
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r3"

	"github.com/YuminosukeSato/itwmm/lazy"
	"github.com/YuminosukeSato/itwmm/mesh"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
	"github.com/YuminosukeSato/itwmm/raster"
)

// DefaultFitExt is the extension of fit files.
const DefaultFitExt = ".txt"

// DefaultImageExts are the image extensions Paths picks up.
var DefaultImageExts = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tif", ".tiff"}

// Sample is one loaded image/fit pair.
type Sample struct {
	Path  string
	Image *image.Gray
	Fit   *mesh.TriMesh
}

// Loader finds and loads samples. All fits share the connectivity read from
// TrilistPath.
type Loader struct {
	ImageRoot   string
	FitRoot     string
	FitExt      string
	TrilistPath string

	imageExts map[string]bool
	logger    log.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithFitExt sets the fit file extension, including the dot.
func WithFitExt(ext string) Option {
	return func(l *Loader) { l.FitExt = ext }
}

// WithImageExts replaces the image extension allow-list.
func WithImageExts(exts ...string) Option {
	return func(l *Loader) {
		l.imageExts = make(map[string]bool, len(exts))
		for _, e := range exts {
			l.imageExts[strings.ToLower(e)] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader returns a Loader over the two directory trees.
func NewLoader(imageRoot, fitRoot, trilistPath string, opts ...Option) *Loader {
	l := &Loader{
		ImageRoot:   imageRoot,
		FitRoot:     fitRoot,
		FitExt:      DefaultFitExt,
		TrilistPath: trilistPath,
		logger:      log.GetLoggerWithName("dataset"),
	}
	WithImageExts(DefaultImageExts...)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FitPath maps an image path to its fit path.
func (l *Loader) FitPath(imagePath string) string {
	rel, err := filepath.Rel(l.ImageRoot, imagePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(imagePath)
	}
	return filepath.Join(l.FitRoot, strings.TrimSuffix(rel, filepath.Ext(rel))+l.FitExt)
}

// Paths returns every image under ImageRoot in lexical order.
func (l *Loader) Paths() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.ImageRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if l.imageExts[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewLoadError("image directory", l.ImageRoot, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads the image at imagePath as grayscale together with its fit.
func (l *Loader) Load(imagePath string) (*Sample, error) {
	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.NewLoadError("image", imagePath, err)
	}
	gray := raster.ToGray(img)

	trilist, err := mesh.LoadTrilist(l.TrilistPath)
	if err != nil {
		return nil, err
	}

	fitPath := l.FitPath(imagePath)
	fit, err := ReadFit(fitPath, gray.Bounds().Dy(), trilist)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("Sample loaded",
		log.ImagePathKey, imagePath,
		log.FitPathKey, fitPath,
		log.WidthKey, gray.Bounds().Dx(),
		log.HeightKey, gray.Bounds().Dy(),
		log.VerticesKey, fit.NVertices(),
	)
	return &Sample{Path: imagePath, Image: gray, Fit: fit}, nil
}

// List returns every sample under ImageRoot as a lazy list. Only the
// directory listing happens here; images and fits are read on access.
func (l *Loader) List() (*lazy.List[*Sample], error) {
	paths, err := l.Paths()
	if err != nil {
		return nil, err
	}
	l.logger.Info("Dataset indexed", log.ImagePathKey, l.ImageRoot, log.SamplesKey, len(paths))
	return lazy.New(len(paths), func(i int) (*Sample, error) {
		return l.Load(paths[i])
	}), nil
}

// ReadFit reads a raw 3×N fit and converts it to pixel-aligned coordinates
// for an image of the given height.
func ReadFit(path string, height int, trilist *mesh.Trilist) (*mesh.TriMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewLoadError("fit", path, err)
	}
	defer f.Close()

	rows, err := mesh.ReadMatrix(f)
	if err != nil {
		return nil, errors.NewLoadError("fit", path, err)
	}
	if len(rows) != 3 {
		return nil, errors.NewLoadError("fit", path, errors.NewDimensionError("ReadFit", 3, len(rows), 0))
	}

	points := make([]r3.Vector, len(rows[0]))
	for i := range points {
		points[i] = RawToPixel(rows[0][i], rows[1][i], rows[2][i], height)
	}
	m, err := mesh.New(points, trilist)
	if err != nil {
		return nil, errors.NewLoadError("fit", path, err)
	}
	return m, nil
}

// RawToPixel converts a one-based, y-up, z-toward-viewer coordinate into the
// mesh convention.
func RawToPixel(x, y, z float64, height int) r3.Vector {
	return r3.Vector{X: x - 1, Y: float64(height) - y, Z: -z}
}
