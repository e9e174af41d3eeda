// Package config loads the YAML configuration of a texture model build.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/itwmm/dataset"
	"github.com/YuminosukeSato/itwmm/decomposition"
	"github.com/YuminosukeSato/itwmm/features"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
	"github.com/YuminosukeSato/itwmm/preprocessing"
	"github.com/YuminosukeSato/itwmm/texture"
)

// Config is the full build configuration.
type Config struct {
	Dataset       DatasetConfig       `yaml:"dataset"`
	Normalization NormalizationConfig `yaml:"normalization"`
	Model         ModelConfig         `yaml:"model"`
	Output        OutputConfig        `yaml:"output"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// DatasetConfig locates the image/fit pairs.
type DatasetConfig struct {
	ImageRoot   string   `yaml:"image_root"`
	FitRoot     string   `yaml:"fit_root"`
	FitExt      string   `yaml:"fit_ext"`
	ImageExts   []string `yaml:"image_exts,omitempty"`
	TrilistPath string   `yaml:"trilist"`
	// Subset limits training to the first N samples. 0 uses all.
	Subset int `yaml:"subset"`
}

// NormalizationConfig controls cropping, rescaling and feature extraction.
type NormalizationConfig struct {
	DiagonalRange  float64 `yaml:"diagonal_range"`
	CropProportion float64 `yaml:"crop_proportion"`
	BlurSigma      float64 `yaml:"blur_sigma"`
	Feature        string  `yaml:"feature"`
}

// ModelConfig controls sampling and the decomposition.
type ModelConfig struct {
	DepthTolerance float64    `yaml:"depth_tolerance"`
	MaxComponents  int        `yaml:"max_components"`
	EigenCutoff    float64    `yaml:"eigen_cutoff"`
	RPCA           RPCAConfig `yaml:"rpca"`
}

// RPCAConfig holds robust PCA solver settings. Lambda 0 selects 1/√max(n, d).
type RPCAConfig struct {
	Lambda  float64 `yaml:"lambda"`
	Tol     float64 `yaml:"tol"`
	MaxIter int     `yaml:"max_iter"`
	Rho     float64 `yaml:"rho"`
}

// OutputConfig names the files a build writes. Empty optional paths are skipped.
type OutputConfig struct {
	ModelPath    string `yaml:"model"`
	SummaryPath  string `yaml:"summary"`
	SpectrumPath string `yaml:"spectrum"`
}

// LoggingConfig selects the log level and format ("json", "console" or "slog").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration. Dataset paths are left empty.
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{
			FitExt: dataset.DefaultFitExt,
		},
		Normalization: NormalizationConfig{
			DiagonalRange:  preprocessing.DefaultDiagonalRange,
			CropProportion: preprocessing.DefaultCropProportion,
			Feature:        features.IGO,
		},
		Model: ModelConfig{
			DepthTolerance: texture.DefaultDepthTolerance,
			EigenCutoff:    decomposition.DefaultEigenCutoff,
			RPCA: RPCAConfig{
				Tol:     decomposition.DefaultTol,
				MaxIter: decomposition.DefaultMaxIter,
				Rho:     decomposition.DefaultRho,
			},
		},
		Output: OutputConfig{
			ModelPath: "itw_texture_model.gob",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// resolves relative dataset and output paths against the file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewLoadError("config", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewLoadError("config", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ITWMM_IMAGE_ROOT"); v != "" {
		c.Dataset.ImageRoot = v
	}
	if v := os.Getenv("ITWMM_FIT_ROOT"); v != "" {
		c.Dataset.FitRoot = v
	}
	if v := os.Getenv("ITWMM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.Dataset.ImageRoot,
		&c.Dataset.FitRoot,
		&c.Dataset.TrilistPath,
		&c.Output.ModelPath,
		&c.Output.SummaryPath,
		&c.Output.SpectrumPath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// ValidFormats lists the supported log formats.
var ValidFormats = []string{"json", "console", "slog"}

// Validate checks every field and returns the first problem as a
// ValidationError.
func (c *Config) Validate() error {
	checks := []struct {
		ok     bool
		param  string
		reason string
		value  interface{}
	}{
		{c.Dataset.ImageRoot != "", "dataset.image_root", "required", c.Dataset.ImageRoot},
		{c.Dataset.FitRoot != "", "dataset.fit_root", "required", c.Dataset.FitRoot},
		{c.Dataset.TrilistPath != "", "dataset.trilist", "required", c.Dataset.TrilistPath},
		{c.Dataset.FitExt != "", "dataset.fit_ext", "required", c.Dataset.FitExt},
		{c.Dataset.Subset >= 0, "dataset.subset", "must not be negative", c.Dataset.Subset},
		{c.Normalization.DiagonalRange > 0, "normalization.diagonal_range", "must be positive", c.Normalization.DiagonalRange},
		{c.Normalization.BlurSigma >= 0, "normalization.blur_sigma", "must not be negative", c.Normalization.BlurSigma},
		{c.Model.DepthTolerance >= 0, "model.depth_tolerance", "must not be negative", c.Model.DepthTolerance},
		{c.Model.MaxComponents >= 0, "model.max_components", "must not be negative", c.Model.MaxComponents},
		{c.Model.EigenCutoff >= 0, "model.eigen_cutoff", "must not be negative", c.Model.EigenCutoff},
		{c.Model.RPCA.Lambda >= 0, "model.rpca.lambda", "must not be negative", c.Model.RPCA.Lambda},
		{c.Model.RPCA.Tol > 0, "model.rpca.tol", "must be positive", c.Model.RPCA.Tol},
		{c.Model.RPCA.MaxIter > 0, "model.rpca.max_iter", "must be positive", c.Model.RPCA.MaxIter},
		{c.Model.RPCA.Rho > 1, "model.rpca.rho", "must be greater than 1", c.Model.RPCA.Rho},
		{c.Output.ModelPath != "", "output.model", "required", c.Output.ModelPath},
	}
	for _, chk := range checks {
		if !chk.ok {
			return errors.NewValidationError(chk.param, chk.reason, chk.value)
		}
	}

	if _, err := features.Lookup(c.Normalization.Feature); err != nil {
		return errors.NewValidationError("normalization.feature", "unknown feature, known: "+strings.Join(features.Names(), ", "), c.Normalization.Feature)
	}
	if _, ok := log.ParseLevel(c.Logging.Level); !ok {
		return errors.NewValidationError("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	validFormat := false
	for _, f := range ValidFormats {
		if c.Logging.Format == f {
			validFormat = true
			break
		}
	}
	if !validFormat {
		return errors.NewValidationError("logging.format", "must be json, console or slog", c.Logging.Format)
	}
	return nil
}

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() log.Level {
	level, _ := log.ParseLevel(c.Logging.Level)
	return level
}
