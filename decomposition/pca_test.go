package decomposition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
)

func quietPCA(opts ...PCAOption) *PCA {
	logger, _ := log.NewTestLogger(log.LevelWarn)
	return NewPCA(append([]PCAOption{WithPCALogger(logger)}, opts...)...)
}

// points on the line y = 2x in 3D, offset by (1, 1, 1)
func lineData() *mat.Dense {
	return mat.NewDense(4, 3, []float64{
		1, 1, 1,
		2, 3, 1,
		3, 5, 1,
		4, 7, 1,
	})
}

func TestPCAKnownData(t *testing.T) {
	p := quietPCA()
	require.NoError(t, p.Fit(lineData()))

	assert.Equal(t, 1, p.NComponents())
	assert.Equal(t, 3, p.NFeatures())
	assert.InDeltaSlice(t, []float64{2.5, 4, 1}, p.Mean(), 1e-12)

	// direction (1, 2, 0)/√5, sign is arbitrary
	c := p.Components().RawRowView(0)
	assert.InDelta(t, 1/math.Sqrt(5), math.Abs(c[0]), 1e-9)
	assert.InDelta(t, 2/math.Sqrt(5), math.Abs(c[1]), 1e-9)
	assert.InDelta(t, 0, c[2], 1e-9)

	// variance along the line: x spacing 1 → projected spacing √5, var = 5·var(0..3)
	assert.InDelta(t, 5*5.0/3, p.Eigenvalues()[0], 1e-9)
	assert.InDeltaSlice(t, []float64{1}, p.ExplainedVarianceRatio(), 1e-9)
}

func TestPCARoundTrip(t *testing.T) {
	X := lineData()
	p := quietPCA()
	W, err := p.FitTransform(X)
	require.NoError(t, err)

	r, c := W.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 1, c)

	back, err := p.InverseTransform(W)
	require.NoError(t, err)
	assert.Less(t, relativeError(back, X), 1e-9)
}

func TestPCAMaxComponents(t *testing.T) {
	X := mat.NewDense(5, 4, []float64{
		1, 0, 3, 2,
		4, 1, 0, 2,
		0, 2, 1, 5,
		3, 3, 3, 0,
		2, 5, 1, 1,
	})
	full := quietPCA()
	require.NoError(t, full.Fit(X))
	assert.Equal(t, 4, full.NComponents())
	assert.InDelta(t, 1, floats.Sum(full.ExplainedVarianceRatio()), 1e-9)
	assert.True(t, sortedDesc(full.Eigenvalues()))

	trunc := quietPCA(WithMaxComponents(2))
	require.NoError(t, trunc.Fit(X))
	assert.Equal(t, 2, trunc.NComponents())
	assert.InDeltaSlice(t, full.Eigenvalues()[:2], trunc.Eigenvalues(), 1e-9)
	assert.Less(t, floats.Sum(trunc.ExplainedVarianceRatio()), 1.0)
}

func sortedDesc(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] > v[i-1] {
			return false
		}
	}
	return true
}

func TestPCAErrors(t *testing.T) {
	p := quietPCA()
	_, err := p.Transform(lineData())
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, p.Fit(lineData()))
	_, err = p.Transform(mat.NewDense(1, 2, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	_, err = p.InverseTransform(mat.NewDense(1, 3, nil))
	assert.True(t, errors.As(err, &dimErr))

	constant := mat.NewDense(3, 2, []float64{1, 1, 1, 1, 1, 1})
	err = quietPCA().Fit(constant)
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}
