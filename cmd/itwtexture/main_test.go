package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/itwmm/dataset/datasettest"
	"github.com/YuminosukeSato/itwmm/mesh"
	"github.com/YuminosukeSato/itwmm/texture"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	datasettest.WriteTrilist(t, filepath.Join(dir, "trilist.txt"))
	faces := []datasettest.Face{
		{Width: 40, Height: 30, X0: 10, Y0: 5, Size: 16, Tilt: 0},
		{Width: 60, Height: 60, X0: 8, Y0: 10, Size: 40, Tilt: 1},
		{Width: 45, Height: 45, X0: 6, Y0: 8, Size: 30, Tilt: 2},
	}
	for i, f := range faces {
		datasettest.WriteSample(t, filepath.Join(dir, "images"), filepath.Join(dir, "fits"), fmt.Sprintf("%04d", i), f)
	}
	cfg := `dataset:
  image_root: images
  fit_root: fits
  trilist: trilist.txt
output:
  model: model.gob
logging:
  level: warn
`
	path := filepath.Join(dir, "itw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	t.Cleanup(mesh.ResetTrilistCache)
	return path
}

func TestBuildAndInspect(t *testing.T) {
	cfgPath := writeDataset(t)
	dir := filepath.Dir(cfgPath)
	spectrum := filepath.Join(dir, "spectrum.png")

	out, err := execute(t, "build", "--config", cfgPath, "--spectrum", spectrum)
	require.NoError(t, err)
	assert.Contains(t, out, "samples:    3")
	assert.FileExists(t, spectrum)

	modelPath := filepath.Join(dir, "model.gob")
	out, err = execute(t, "inspect", modelPath)
	require.NoError(t, err)

	var summary texture.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "igo", summary.Feature)
	assert.Equal(t, 3, summary.NSamples)
	assert.Equal(t, 100.0, summary.DiagonalRange)
}

func TestBuildRequiresConfig(t *testing.T) {
	_, err := execute(t, "build")
	assert.Error(t, err)
}

func TestInspectMissingModel(t *testing.T) {
	_, err := execute(t, "inspect", filepath.Join(t.TempDir(), "none.gob"))
	assert.Error(t, err)
}

func TestInvalidLogLevelFlag(t *testing.T) {
	cfgPath := writeDataset(t)
	_, err := execute(t, "--log-level", "chatty", "build", "--config", cfgPath)
	assert.ErrorContains(t, err, "invalid log level")
}
