package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

func TestMaskedErrors(t *testing.T) {
	yTrue := mat.NewDense(2, 2, []float64{1, 2, 3, math.NaN()})
	yPred := mat.NewDense(2, 2, []float64{1, 4, 2, 100})
	mask := mat.NewDense(2, 2, []float64{1, 1, 1, 0})

	tests := []struct {
		name string
		fn   func(a, b, m mat.Matrix) (float64, error)
		want float64
	}{
		{"mse", MaskedMSE, (0 + 4 + 1) / 3.0},
		{"rmse", MaskedRMSE, math.Sqrt(5.0 / 3)},
		{"mae", MaskedMAE, (0 + 2 + 1) / 3.0},
		// mean 2, tss 2, rss 5
		{"r2", MaskedR2Score, 1 - 5.0/2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(yTrue, yPred, mask)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestMaskedNilMaskUsesAll(t *testing.T) {
	a := mat.NewDense(1, 3, []float64{1, 2, 3})
	got, err := MaskedMSE(a, a, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	r2, err := MaskedR2Score(a, a, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r2)
}

func TestMaskedShapeAndEmpty(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	_, err := MaskedMSE(a, mat.NewDense(2, 3, nil), nil)
	var shapeErr *errors.InputShapeError
	assert.True(t, errors.As(err, &shapeErr))

	_, err = MaskedMAE(a, a, mat.NewDense(2, 2, nil))
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))

	_, err = MaskedR2Score(a, a, nil)
	assert.True(t, errors.As(err, &valueErr))
}
