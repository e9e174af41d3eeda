package texture

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/itwmm/core/model"
	"github.com/YuminosukeSato/itwmm/features"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

// Model is a fitted in-the-wild texture model.
//
// Fields are exported for gob persistence. Components holds NComponents rows
// of length NVertices·NChannels, row-major, ordered by decreasing eigenvalue.
type Model struct {
	Mean          []float64
	Components    []float64
	Eigenvalues   []float64
	TotalVariance float64

	NVertices int
	NChannels int
	NSamples  int

	// DiagonalRange and Feature reproduce the normalization the model was
	// trained with.
	DiagonalRange float64
	Feature       string

	RPCAIter      int
	RPCAConverged bool
	// ObservedRMSE is the error of the low-rank fit on observed entries.
	ObservedRMSE  float64
}

// NComponents returns the number of components.
func (m *Model) NComponents() int { return len(m.Eigenvalues) }

// NFeatures returns the length of a texture vector.
func (m *Model) NFeatures() int { return m.NVertices * m.NChannels }

// ComponentsMatrix returns the components as a k×d matrix sharing storage
// with the model.
func (m *Model) ComponentsMatrix() *mat.Dense {
	return mat.NewDense(m.NComponents(), m.NFeatures(), m.Components)
}

func (m *Model) component(i int) []float64 {
	d := m.NFeatures()
	return m.Components[i*d : (i+1)*d]
}

// ExplainedVarianceRatio returns each component's share of the total variance.
func (m *Model) ExplainedVarianceRatio() []float64 {
	ratio := make([]float64, len(m.Eigenvalues))
	for i, e := range m.Eigenvalues {
		ratio[i] = errors.SafeDivide(e, m.TotalVariance)
	}
	return ratio
}

// Project returns the weights of a fully observed texture vector.
func (m *Model) Project(row []float64) ([]float64, error) {
	if len(row) != m.NFeatures() {
		return nil, errors.NewDimensionError("Model.Project", m.NFeatures(), len(row), 0)
	}
	if err := errors.CheckNumericalStability("Model.Project", row, 0); err != nil {
		return nil, err
	}
	centered := make([]float64, len(row))
	floats.SubTo(centered, row, m.Mean)

	w := make([]float64, m.NComponents())
	for i := range w {
		w[i] = floats.Dot(m.component(i), centered)
	}
	return w, nil
}

// ProjectMasked returns the least-squares weights using only the entries of
// row where the per-vertex mask is true. Masked-out entries may be NaN.
func (m *Model) ProjectMasked(row []float64, vertexMask []bool) (w []float64, err error) {
	defer errors.Recover(&err, "Model.ProjectMasked")

	if len(row) != m.NFeatures() {
		return nil, errors.NewDimensionError("Model.ProjectMasked", m.NFeatures(), len(row), 0)
	}
	if len(vertexMask) != m.NVertices {
		return nil, errors.NewDimensionError("Model.ProjectMasked mask", m.NVertices, len(vertexMask), 0)
	}

	var idx []int
	for v, ok := range vertexMask {
		if !ok {
			continue
		}
		for c := 0; c < m.NChannels; c++ {
			idx = append(idx, v*m.NChannels+c)
		}
	}
	k := m.NComponents()
	if len(idx) < k {
		return nil, errors.NewValueError("Model.ProjectMasked",
			fmt.Sprintf("%d observed entries cannot determine %d weights", len(idx), k))
	}

	a := mat.NewDense(len(idx), k, nil)
	b := mat.NewVecDense(len(idx), nil)
	for r, j := range idx {
		if math.IsNaN(row[j]) || math.IsInf(row[j], 0) {
			return nil, errors.NewNumericalInstabilityError("Model.ProjectMasked", []float64{row[j]}, 0)
		}
		b.SetVec(r, row[j]-m.Mean[j])
		for i := 0; i < k; i++ {
			a.Set(r, i, m.Components[i*m.NFeatures()+j])
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, errors.NewModelError("Model.ProjectMasked", "least squares", err)
	}
	return append([]float64(nil), x.RawVector().Data...), nil
}

// Instance reconstructs the texture vector mean + Σ w_i·c_i. Missing trailing
// weights are treated as zero.
func (m *Model) Instance(weights []float64) ([]float64, error) {
	if len(weights) > m.NComponents() {
		return nil, errors.NewDimensionError("Model.Instance", m.NComponents(), len(weights), 0)
	}
	out := append([]float64(nil), m.Mean...)
	for i, w := range weights {
		floats.AddScaled(out, w, m.component(i))
	}
	return out, nil
}

// FeatureFunc returns the feature function the model was trained with.
func (m *Model) FeatureFunc() (features.Func, error) {
	return features.Lookup(m.Feature)
}

// Validate checks the internal consistency of a loaded model.
func (m *Model) Validate() error {
	d := m.NFeatures()
	switch {
	case d <= 0:
		return errors.NewValueError("Model.Validate", "no features")
	case len(m.Mean) != d:
		return errors.NewDimensionError("Model.Validate mean", d, len(m.Mean), 0)
	case len(m.Components) != m.NComponents()*d:
		return errors.NewDimensionError("Model.Validate components", m.NComponents()*d, len(m.Components), 0)
	}
	return nil
}

// Save writes the model to path with gob.
func (m *Model) Save(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return model.SaveModel(m, path)
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	var m Model
	if err := model.LoadModel(&m, path); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, errors.NewLoadError("model", path, err)
	}
	return &m, nil
}

// Summary describes a model for display and JSON export.
type Summary struct {
	Feature                string    `json:"feature"`
	DiagonalRange          float64   `json:"diagonal_range"`
	NVertices              int       `json:"n_vertices"`
	NChannels              int       `json:"n_channels"`
	NSamples               int       `json:"n_samples"`
	NComponents            int       `json:"n_components"`
	Eigenvalues            []float64 `json:"eigenvalues"`
	ExplainedVarianceRatio []float64 `json:"explained_variance_ratio"`
	CumulativeExplained    []float64 `json:"cumulative_explained"`
	RPCAIterations         int       `json:"rpca_iterations"`
	RPCAConverged          bool      `json:"rpca_converged"`
	ObservedRMSE           float64   `json:"observed_rmse"`
}

// Summary returns the model summary.
func (m *Model) Summary() Summary {
	ratio := m.ExplainedVarianceRatio()
	cum := make([]float64, len(ratio))
	floats.CumSum(cum, ratio)
	return Summary{
		Feature:                m.Feature,
		DiagonalRange:          m.DiagonalRange,
		NVertices:              m.NVertices,
		NChannels:              m.NChannels,
		NSamples:               m.NSamples,
		NComponents:            m.NComponents(),
		Eigenvalues:            m.Eigenvalues,
		ExplainedVarianceRatio: ratio,
		CumulativeExplained:    cum,
		RPCAIterations:         m.RPCAIter,
		RPCAConverged:          m.RPCAConverged,
		ObservedRMSE:           m.ObservedRMSE,
	}
}

// SummaryJSON returns the indented JSON encoding of Summary.
func (m *Model) SummaryJSON() ([]byte, error) {
	b, err := json.MarshalIndent(m.Summary(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode model summary")
	}
	return b, nil
}
