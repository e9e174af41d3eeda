// Package pipeline runs a complete texture model build from a Config:
// index the dataset, normalize each sample lazily, collect X and its mask,
// fit the model and export it.
package pipeline

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/itwmm/config"
	"github.com/YuminosukeSato/itwmm/dataset"
	"github.com/YuminosukeSato/itwmm/decomposition"
	"github.com/YuminosukeSato/itwmm/lazy"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
	"github.com/YuminosukeSato/itwmm/preprocessing"
	"github.com/YuminosukeSato/itwmm/report"
	"github.com/YuminosukeSato/itwmm/texture"
)

// Result is the outcome of a build.
type Result struct {
	Model *texture.Model
	X     *mat.Dense
	Mask  *mat.Dense
	// Paths and Scales list the training images and their normalization
	// scale factors, in row order.
	Paths   []string
	Scales  []float64
	Elapsed time.Duration
}

// Run executes the build described by cfg. Cancelling ctx stops the build
// before the next sample is loaded.
func Run(ctx context.Context, cfg *config.Config, logger log.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	start := time.Now()

	loaderOpts := []dataset.Option{
		dataset.WithFitExt(cfg.Dataset.FitExt),
		dataset.WithLogger(logger.With(log.ComponentKey, "dataset")),
	}
	if len(cfg.Dataset.ImageExts) > 0 {
		loaderOpts = append(loaderOpts, dataset.WithImageExts(cfg.Dataset.ImageExts...))
	}
	loader := dataset.NewLoader(cfg.Dataset.ImageRoot, cfg.Dataset.FitRoot, cfg.Dataset.TrilistPath, loaderOpts...)

	samples, err := loader.List()
	if err != nil {
		return nil, err
	}
	samples = samples.Head(cfg.Dataset.Subset)
	if samples.Len() == 0 {
		return nil, errors.NewLoadError("image directory", cfg.Dataset.ImageRoot, errors.ErrEmptyData)
	}

	normalizer, err := preprocessing.NewNormalizer(cfg.Normalization.DiagonalRange,
		preprocessing.WithCropProportion(cfg.Normalization.CropProportion),
		preprocessing.WithBlurSigma(cfg.Normalization.BlurSigma),
		preprocessing.WithFeature(cfg.Normalization.Feature),
		preprocessing.WithLogger(logger.With(log.ComponentKey, "preprocessing")),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("Building texture model",
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, samples.Len(),
		log.DiagonalKey, cfg.Normalization.DiagonalRange,
		log.FeatureKey, cfg.Normalization.Feature,
	)

	builder := texture.NewBuilderFromNormalizer(normalizer,
		texture.WithDepthTolerance(cfg.Model.DepthTolerance),
		texture.WithMaxComponents(cfg.Model.MaxComponents),
		texture.WithEigenCutoff(cfg.Model.EigenCutoff),
		texture.WithRPCAOptions(
			decomposition.WithLambda(cfg.Model.RPCA.Lambda),
			decomposition.WithTol(cfg.Model.RPCA.Tol),
			decomposition.WithMaxIter(cfg.Model.RPCA.MaxIter),
			decomposition.WithRho(cfg.Model.RPCA.Rho),
		),
		texture.WithLogger(logger.With(log.ComponentKey, "texture")),
	)

	res := &Result{}
	seq := record(ctx, normalizer.NormalizeList(samples), res)
	model, X, m, err := builder.Build(seq)
	if err != nil {
		return nil, err
	}
	res.Model, res.X, res.Mask = model, X, m

	if err := export(cfg.Output, model, logger); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	logger.Info("Texture model built",
		log.PhaseKey, log.PhaseExport,
		log.ComponentsKey, model.NComponents(),
		log.DurationMsKey, res.Elapsed.Milliseconds(),
	)
	return res, nil
}

// record iterates list in order, checking ctx before each element and
// noting the path and scale of every normalized sample.
func record(ctx context.Context, list *lazy.List[*preprocessing.Normalized], res *Result) iter.Seq2[*preprocessing.Normalized, error] {
	return func(yield func(*preprocessing.Normalized, error) bool) {
		for i := 0; i < list.Len(); i++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			s, err := list.At(i)
			if err == nil {
				res.Paths = append(res.Paths, s.Path)
				res.Scales = append(res.Scales, s.Scale)
			}
			if !yield(s, err) {
				return
			}
		}
	}
}

func export(out config.OutputConfig, model *texture.Model, logger log.Logger) error {
	logger = logger.With(log.OperationKey, log.OperationExport)

	if err := os.MkdirAll(filepath.Dir(out.ModelPath), 0o755); err != nil {
		return errors.Wrap(err, "create model directory")
	}
	if err := model.Save(out.ModelPath); err != nil {
		return err
	}
	logger.Info("Model saved", "path", out.ModelPath)

	if out.SummaryPath != "" {
		js, err := model.SummaryJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(out.SummaryPath, js, 0o644); err != nil {
			return errors.Wrapf(err, "write summary %s", out.SummaryPath)
		}
		logger.Info("Summary saved", "path", out.SummaryPath)
	}
	if out.SpectrumPath != "" {
		if err := report.SaveSpectrum(model, out.SpectrumPath); err != nil {
			return err
		}
		logger.Info("Spectrum saved", "path", out.SpectrumPath)
	}
	return nil
}
