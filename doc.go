// Package itwmm builds "in-the-wild" texture models for 3D morphable face
// models from images paired with 3D mesh fits.
//
// A texture model describes how dense image features vary across faces when
// sampled at the vertices of a shared mesh topology. Images captured in the
// wild suffer from occlusion, self-occlusion and gross outliers, so the model
// is learned with a robust PCA that treats invisible vertices as missing data.
//
// # Pipeline
//
//  1. dataset: pair images with their fits and share one connectivity
//  2. preprocessing: crop, rescale to a fixed mesh diagonal, extract features
//  3. texture: sample features at visible vertices into X and its mask m
//  4. decomposition: robust PCA on (X, m), then PCA of the low-rank part
//  5. texture.Model: export with the diagonal range and feature name
//
// Samples are produced lazily by package lazy, so only one image is held in
// memory at a time besides X and m.
//
// # Quick Start
//
//	cfg, err := config.Load("itw.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := pipeline.Run(ctx, cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Model.NComponents())
//
// Or from the command line:
//
//	itwtexture build --config itw.yaml --spectrum spectrum.png
//	itwtexture inspect itw_texture_model.gob
//
// # Error Handling
//
// Errors are built on github.com/cockroachdb/errors and carry stack traces.
// Typed errors such as LoadError, DimensionError and NotFittedError live in
// pkg/errors and are matched with errors.As. Non-fatal conditions such as a
// robust PCA that did not converge are reported as warnings and routed to
// the zerolog logger configured by pkg/log.Setup.
package itwmm
