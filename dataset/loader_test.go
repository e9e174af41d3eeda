package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/itwmm/dataset/datasettest"
	"github.com/YuminosukeSato/itwmm/mesh"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
)

type fixture struct {
	images, fits, trilist string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{
		images:  filepath.Join(dir, "images"),
		fits:    filepath.Join(dir, "fits"),
		trilist: filepath.Join(dir, "trilist.txt"),
	}
	datasettest.WriteTrilist(t, fx.trilist)
	t.Cleanup(mesh.ResetTrilistCache)
	return fx
}

func (fx fixture) loader(opts ...Option) *Loader {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewLoader(fx.images, fx.fits, fx.trilist, append([]Option{WithLogger(logger)}, opts...)...)
}

func TestFitPath(t *testing.T) {
	l := NewLoader("/data/images", "/data/fits", "")
	assert.Equal(t, filepath.FromSlash("/data/fits/afw/0001.txt"), l.FitPath("/data/images/afw/0001.jpg"))

	l = NewLoader("/data/images", "/data/fits", "", WithFitExt(".fit"))
	assert.Equal(t, filepath.FromSlash("/data/fits/0002.fit"), l.FitPath("/data/images/0002.PNG"))
}

func TestPathsSortedAndFiltered(t *testing.T) {
	fx := newFixture(t)
	face := datasettest.Face{Width: 40, Height: 30, X0: 10, Y0: 5, Size: 16, Depth: 3}
	datasettest.WriteSample(t, fx.images, fx.fits, "b/0002", face)
	datasettest.WriteSample(t, fx.images, fx.fits, "a/0001", face)
	require.NoError(t, os.WriteFile(filepath.Join(fx.images, "notes.md"), []byte("x"), 0o644))

	paths, err := fx.loader().Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(fx.images, "a", "0001.png"),
		filepath.Join(fx.images, "b", "0002.png"),
	}, paths)
}

func TestLoadConvertsCoordinates(t *testing.T) {
	fx := newFixture(t)
	face := datasettest.Face{Width: 40, Height: 30, X0: 10, Y0: 5, Size: 16, Depth: 3}
	imagePath, _ := datasettest.WriteSample(t, fx.images, fx.fits, "0001", face)

	s, err := fx.loader().Load(imagePath)
	require.NoError(t, err)

	assert.Equal(t, 40, s.Image.Bounds().Dx())
	assert.Equal(t, 30, s.Image.Bounds().Dy())
	require.Equal(t, datasettest.GridN*datasettest.GridN, s.Fit.NVertices())

	want := face.Points()
	for i, p := range s.Fit.Points {
		assert.InDelta(t, want[i].X, p.X, 1e-9)
		assert.InDelta(t, want[i].Y, p.Y, 1e-9)
		assert.InDelta(t, want[i].Z, p.Z, 1e-9)
	}
}

func TestLoadSharesTrilist(t *testing.T) {
	fx := newFixture(t)
	face := datasettest.Face{Width: 40, Height: 30, X0: 10, Y0: 5, Size: 16, Depth: 3}
	datasettest.WriteSample(t, fx.images, fx.fits, "0001", face)
	datasettest.WriteSample(t, fx.images, fx.fits, "0002", face)

	list, err := fx.loader().List()
	require.NoError(t, err)
	require.Equal(t, 2, list.Len())

	a, err := list.At(0)
	require.NoError(t, err)
	b, err := list.At(1)
	require.NoError(t, err)
	assert.Same(t, a.Fit.Trilist, b.Fit.Trilist)
}

func TestLoadMissingFit(t *testing.T) {
	fx := newFixture(t)
	face := datasettest.Face{Width: 20, Height: 20, X0: 2, Y0: 2, Size: 8}
	imagePath, fitPath := datasettest.WriteSample(t, fx.images, fx.fits, "0001", face)
	require.NoError(t, os.Remove(fitPath))

	list, err := fx.loader().List()
	require.NoError(t, err, "listing must not read fits")

	_, err = list.At(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var loadErr *errors.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "fit", loadErr.What)
	assert.Equal(t, fitPath, loadErr.Path)

	_, err = fx.loader().Load(imagePath + ".missing")
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "image", loadErr.What)
}

func TestReadFitRejectsWrongShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 2 3\n4 5 6\n"), 0o644))

	_, err := ReadFit(path, 10, mesh.NewTrilist(nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestReadFitRejectsNonFiniteCoordinates(t *testing.T) {
	for _, row := range []string{"NaN 2 3", "1 Inf 3", "1 2 -Inf"} {
		path := filepath.Join(t.TempDir(), "bad.txt")
		body := row + "\n4 5 6\n7 8 9\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		_, err := ReadFit(path, 10, mesh.NewTrilist([][3]int{{0, 1, 2}}))
		require.Error(t, err, row)

		var loadErr *errors.LoadError
		require.True(t, errors.As(err, &loadErr), row)
		assert.Equal(t, "fit", loadErr.What)
		var numErr *errors.NumericalInstabilityError
		assert.True(t, errors.As(err, &numErr), row)
	}
}

func TestRawToPixel(t *testing.T) {
	p := RawToPixel(1, 1, 2.5, 100)
	assert.Equal(t, 0.0, p.X)
	assert.Equal(t, 99.0, p.Y)
	assert.Equal(t, -2.5, p.Z)
}
