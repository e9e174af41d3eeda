package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/itwmm/config"
	"github.com/YuminosukeSato/itwmm/dataset/datasettest"
	"github.com/YuminosukeSato/itwmm/mesh"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
	"github.com/YuminosukeSato/itwmm/texture"
)

var faces = []datasettest.Face{
	{Width: 40, Height: 30, X0: 10, Y0: 5, Size: 16, Depth: 3, Tilt: 0},
	{Width: 60, Height: 60, X0: 8, Y0: 10, Size: 40, Depth: -2, Tilt: 1},
	{Width: 50, Height: 40, X0: 12, Y0: 6, Size: 24, Depth: 0, Tilt: 0.5},
	{Width: 45, Height: 45, X0: 6, Y0: 8, Size: 30, Depth: 1, Tilt: 2},
}

func setup(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Dataset.ImageRoot = filepath.Join(dir, "images")
	cfg.Dataset.FitRoot = filepath.Join(dir, "fits")
	cfg.Dataset.TrilistPath = filepath.Join(dir, "trilist.txt")
	cfg.Output.ModelPath = filepath.Join(dir, "out", "model.gob")
	cfg.Output.SummaryPath = filepath.Join(dir, "out", "summary.json")
	cfg.Output.SpectrumPath = filepath.Join(dir, "out", "spectrum.png")

	datasettest.WriteTrilist(t, cfg.Dataset.TrilistPath)
	for i, f := range faces {
		datasettest.WriteSample(t, cfg.Dataset.ImageRoot, cfg.Dataset.FitRoot, fmt.Sprintf("%04d", i), f)
	}
	t.Cleanup(mesh.ResetTrilistCache)
	return cfg
}

func quietLogger() log.Logger {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	return logger
}

func TestRunEndToEnd(t *testing.T) {
	cfg := setup(t)

	res, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)

	require.Len(t, res.Scales, len(faces))
	for i, f := range faces {
		assert.InDelta(t, 100/(f.Size*math.Sqrt2), res.Scales[i], 1e-9, "sample %d", i)
		assert.Equal(t, filepath.Join(cfg.Dataset.ImageRoot, fmt.Sprintf("%04d.png", i)), res.Paths[i])
	}

	nv := datasettest.GridN * datasettest.GridN
	xr, xc := res.X.Dims()
	mr, mc := res.Mask.Dims()
	assert.Equal(t, len(faces), xr)
	assert.Equal(t, nv*2, xc) // igo has two channels
	assert.Equal(t, xr, mr)
	assert.Equal(t, xc, mc)
	for i := 0; i < xr; i++ {
		for j := 0; j < xc; j++ {
			if res.Mask.At(i, j) == 1 {
				require.False(t, math.IsNaN(res.X.At(i, j)), "NaN at observed (%d, %d)", i, j)
			}
		}
	}

	model := res.Model
	assert.Equal(t, 100.0, model.DiagonalRange)
	assert.Equal(t, "igo", model.Feature)
	assert.GreaterOrEqual(t, model.NComponents(), 1)

	loaded, err := texture.Load(cfg.Output.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, model, loaded)

	for _, p := range []string{cfg.Output.SummaryPath, cfg.Output.SpectrumPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestRunSubset(t *testing.T) {
	cfg := setup(t)
	cfg.Dataset.Subset = 2
	cfg.Output.SpectrumPath = ""

	res, err := Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	assert.Len(t, res.Paths, 2)
	assert.Equal(t, 2, res.Model.NSamples)
}

func TestRunCancelled(t *testing.T) {
	cfg := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, quietLogger())
	assert.True(t, errors.Is(err, context.Canceled))
	_, statErr := os.Stat(cfg.Output.ModelPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingFit(t *testing.T) {
	cfg := setup(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.Dataset.FitRoot, "0002.txt")))

	_, err := Run(context.Background(), cfg, quietLogger())
	var loadErr *errors.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "fit", loadErr.What)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := setup(t)
	cfg.Normalization.Feature = "sift"
	_, err := Run(context.Background(), cfg, quietLogger())
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))
}
