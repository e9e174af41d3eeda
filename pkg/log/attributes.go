// Package log defines standard attribute keys for the texture model pipeline.
//
// Using these keys keeps log records from the loader, the normalizer, the
// sampler and the RPCA solver consistent, so a training run can be followed
// sample by sample. Keys use a hierarchical naming convention ("image.path",
// "mesh.vertices") to make filtering easy.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator or component type.
	// Examples: "RobustPCA", "PCA", "TextureBuilder"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: see the Operation* constants below.
	OperationKey = "op"

	// ComponentKey identifies which package is logging.
	// Examples: "dataset", "preprocessing", "texture"
	ComponentKey = "component"

	// PhaseKey indicates the stage of the training run.
	PhaseKey = "phase"
)

// Dataset and Image Context
const (
	// ImagePathKey is the image file a record refers to.
	ImagePathKey = "image.path"

	// FitPathKey is the mesh fit file paired with the image.
	FitPathKey = "fit.path"

	// IndexKey is the position of a sample in the lazy sequence.
	IndexKey = "sample.index"

	// WidthKey and HeightKey describe an image in pixels.
	WidthKey  = "image.width"
	HeightKey = "image.height"

	// ScaleKey is the rescale factor applied during normalization.
	ScaleKey = "norm.scale"

	// DiagonalKey is the bounding box diagonal of a projected mesh.
	DiagonalKey = "norm.diagonal"
)

// Mesh and Texture Context
const (
	// VerticesKey is the number of vertices in a mesh.
	VerticesKey = "mesh.vertices"

	// TrianglesKey is the number of triangles in the shared connectivity.
	TrianglesKey = "mesh.triangles"

	// VisibleKey is the number of vertices that passed the visibility test.
	VisibleKey = "mesh.visible"

	// FeatureKey is the registry name of the feature-extraction function.
	FeatureKey = "feature.name"

	// ChannelsKey is the number of feature channels per pixel.
	ChannelsKey = "feature.channels"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows) in X.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of columns in X.
	FeaturesKey = "data.features"

	// ObservedKey is the fraction of observed (mask true) entries.
	ObservedKey = "data.observed"
)

// Solver and Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// IterationKey records the current iteration of an iterative solver.
	IterationKey = "solver.iteration"

	// LossKey records the relative residual of the solver.
	LossKey = "solver.residual"

	// RankKey is the rank of the current low-rank estimate.
	RankKey = "solver.rank"

	// ComponentsKey is the number of principal components kept.
	ComponentsKey = "model.components"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationLoad      = "load"
	OperationNormalize = "normalize"
	OperationSample    = "sample"
	OperationFit       = "fit"
	OperationExport    = "export"

	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseExport        = "export"
)
