package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

type ratios []float64

func (r ratios) ExplainedVarianceRatio() []float64 { return r }

func TestSaveSpectrum(t *testing.T) {
	for _, name := range []string{"spectrum.png", "spectrum.svg"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, SaveSpectrum(ratios{0.6, 0.25, 0.1, 0.05}, path))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestSpectrumPlotEmpty(t *testing.T) {
	_, err := SpectrumPlot(ratios{}, "empty")
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
