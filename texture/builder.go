// Package texture samples normalized feature images at mesh vertices and
// learns the in-the-wild texture basis from them.
//
// Every sample contributes one row of X (vertex-major, channels interleaved)
// and one row of the 0/1 mask m. Masked entries are missing data for the
// robust PCA, which fills them in from the low-rank structure of the rest.
package texture

import (
	"fmt"
	"iter"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/itwmm/decomposition"
	"github.com/YuminosukeSato/itwmm/lazy"
	"github.com/YuminosukeSato/itwmm/metrics"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
	"github.com/YuminosukeSato/itwmm/preprocessing"
)

// Builder fits a Model from a sequence of normalized samples.
type Builder struct {
	depthTolerance float64
	maxComponents  int
	eigenCutoff    float64
	rpcaOpts       []decomposition.RPCAOption
	diagonalRange  float64
	featureName    string
	logger         log.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDepthTolerance sets the z-buffer tolerance used for visibility.
func WithDepthTolerance(tol float64) BuilderOption {
	return func(b *Builder) { b.depthTolerance = tol }
}

// WithMaxComponents caps the number of components kept. Zero keeps all.
func WithMaxComponents(k int) BuilderOption {
	return func(b *Builder) { b.maxComponents = k }
}

// WithEigenCutoff sets the relative eigenvalue cutoff.
func WithEigenCutoff(cutoff float64) BuilderOption {
	return func(b *Builder) { b.eigenCutoff = cutoff }
}

// WithRPCAOptions passes options through to the robust PCA solver.
func WithRPCAOptions(opts ...decomposition.RPCAOption) BuilderOption {
	return func(b *Builder) { b.rpcaOpts = append(b.rpcaOpts, opts...) }
}

// WithNormalization records how the samples were normalized, so the model
// can reproduce it at fitting time.
func WithNormalization(diagonalRange float64, featureName string) BuilderOption {
	return func(b *Builder) {
		b.diagonalRange = diagonalRange
		b.featureName = featureName
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) BuilderOption {
	return func(b *Builder) { b.logger = logger }
}

// NewBuilder returns a Builder with default settings.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		depthTolerance: DefaultDepthTolerance,
		eigenCutoff:    decomposition.DefaultEigenCutoff,
		logger:         log.GetLoggerWithName("texture"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBuilderFromNormalizer is NewBuilder with the normalization settings of n.
func NewBuilderFromNormalizer(n *preprocessing.Normalizer, opts ...BuilderOption) *Builder {
	return NewBuilder(append([]BuilderOption{WithNormalization(n.DiagonalRange, n.FeatureName)}, opts...)...)
}

// Collect samples every element of seq and stacks the results into X and its
// mask m, both samples × (vertices·channels), and returns the channel count.
// It fails on the first error from seq or on a vertex or channel count that
// differs from the first sample.
func (b *Builder) Collect(seq iter.Seq2[*preprocessing.Normalized, error]) (X, m *mat.Dense, channels int, err error) {
	var (
		data      []float64
		maskData  []float64
		nVertices = -1
		nChannels = -1
		n         int
		observed  int
	)

	for s, err := range seq {
		if err != nil {
			return nil, nil, 0, errors.Wrapf(err, "collect sample %d", n)
		}
		if s == nil || s.Features == nil || s.Fit == nil {
			return nil, nil, 0, errors.Wrapf(errors.ErrEmptyData, "collect sample %d", n)
		}
		if nVertices < 0 {
			nVertices, nChannels = s.Fit.NVertices(), s.Features.Channels
		}
		if got := s.Fit.NVertices(); got != nVertices {
			return nil, nil, 0, errors.NewDimensionError(fmt.Sprintf("Builder.Collect vertices of %s", s.Path), nVertices, got, 1)
		}
		if got := s.Features.Channels; got != nChannels {
			return nil, nil, 0, errors.NewDimensionError(fmt.Sprintf("Builder.Collect channels of %s", s.Path), nChannels, got, 1)
		}

		row, mask := Sample(s.Features, s.Fit, b.depthTolerance)
		visible := 0
		for _, ok := range mask {
			var v float64
			if ok {
				v = 1
				visible++
			}
			for c := 0; c < nChannels; c++ {
				maskData = append(maskData, v)
			}
		}
		data = append(data, row...)
		observed += visible * nChannels

		b.logger.Debug("Sample collected",
			log.IndexKey, n,
			log.ImagePathKey, s.Path,
			log.VisibleKey, visible,
			log.VerticesKey, nVertices,
		)
		n++
	}

	if n == 0 {
		return nil, nil, 0, errors.NewModelError("Builder.Collect", "empty data", errors.ErrEmptyData)
	}
	d := nVertices * nChannels
	b.logger.Info("Samples collected",
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.ObservedKey, float64(observed)/float64(n*d),
	)
	return mat.NewDense(n, d, data), mat.NewDense(n, d, maskData), nChannels, nil
}

// Build collects seq and fits the texture model. X and m are returned for
// inspection alongside the model.
func (b *Builder) Build(seq iter.Seq2[*preprocessing.Normalized, error]) (*Model, *mat.Dense, *mat.Dense, error) {
	start := time.Now()
	X, m, channels, err := b.Collect(seq)
	if err != nil {
		return nil, nil, nil, err
	}
	model, err := b.Fit(X, m, channels)
	if err != nil {
		return nil, X, m, err
	}
	b.logger.Info("Texture model fitted",
		log.SamplesKey, model.NSamples,
		log.ComponentsKey, model.NComponents(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return model, X, m, nil
}

// BuildList is Build over a lazy list.
func (b *Builder) BuildList(list *lazy.List[*preprocessing.Normalized]) (*Model, *mat.Dense, *mat.Dense, error) {
	return b.Build(list.All())
}

// Fit runs robust PCA on X with mask m and a PCA on the recovered low-rank
// part. The columns of X are vertices × channels, vertex-major.
func (b *Builder) Fit(X, m *mat.Dense, channels int) (*Model, error) {
	n, d := X.Dims()
	if channels <= 0 || d%channels != 0 {
		return nil, errors.NewValueError("Builder.Fit",
			fmt.Sprintf("%d columns do not split into %d channels", d, channels))
	}

	rpca := decomposition.NewRobustPCA(append([]decomposition.RPCAOption{
		decomposition.WithRPCALogger(b.logger.With(log.ModelNameKey, "RobustPCA")),
	}, b.rpcaOpts...)...)
	if err := rpca.Fit(X, m); err != nil {
		return nil, errors.Wrap(err, "texture robust PCA")
	}
	L, err := rpca.LowRank()
	if err != nil {
		return nil, err
	}
	rmse, err := metrics.MaskedRMSE(X, L, m)
	if err != nil {
		return nil, errors.Wrap(err, "texture reconstruction error")
	}

	pca := decomposition.NewPCA(
		decomposition.WithMaxComponents(b.maxComponents),
		decomposition.WithEigenCutoff(b.eigenCutoff),
		decomposition.WithPCALogger(b.logger.With(log.ModelNameKey, "PCA")),
	)
	if err := pca.Fit(L); err != nil {
		return nil, errors.Wrap(err, "texture PCA")
	}

	return &Model{
		Mean:          append([]float64(nil), pca.Mean()...),
		Components:    append([]float64(nil), pca.Components().RawMatrix().Data...),
		Eigenvalues:   append([]float64(nil), pca.Eigenvalues()...),
		TotalVariance: pca.TotalVariance(),
		NVertices:     d / channels,
		NChannels:     channels,
		NSamples:      n,
		DiagonalRange: b.diagonalRange,
		Feature:       b.featureName,
		RPCAIter:      rpca.NIter(),
		RPCAConverged: rpca.Converged(),
		ObservedRMSE:  rmse,
	}, nil
}
