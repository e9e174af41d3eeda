// Package report renders diagnostic plots of fitted texture models.
package report

import (
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

// Spectrum is anything with an explained variance ratio per component, such
// as *texture.Model or *decomposition.PCA.
type Spectrum interface {
	ExplainedVarianceRatio() []float64
}

// Plot size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// SpectrumPlot builds the explained variance plot: one bar per component and
// the cumulative curve.
func SpectrumPlot(s Spectrum, title string) (*plot.Plot, error) {
	ratio := s.ExplainedVarianceRatio()
	if len(ratio) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "SpectrumPlot: model has no components")
	}
	cum := make([]float64, len(ratio))
	floats.CumSum(cum, ratio)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "component"
	p.Y.Label.Text = "explained variance"
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(plotter.Values(ratio), vg.Points(4))
	if err != nil {
		return nil, errors.Wrap(err, "SpectrumPlot: bars")
	}
	bars.XMin = 1

	pts := make(plotter.XYs, len(cum))
	for i, c := range cum {
		pts[i].X = float64(i + 1)
		pts[i].Y = c
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "SpectrumPlot: cumulative")
	}
	line.Width = vg.Points(1.5)

	p.Add(bars, line)
	p.Legend.Add("per component", bars)
	p.Legend.Add("cumulative", line)
	p.Legend.Top = false
	p.Legend.Left = false
	return p, nil
}

// SaveSpectrum writes the explained variance plot of s to path. The format
// follows the extension (png, svg, pdf, ...).
func SaveSpectrum(s Spectrum, path string) error {
	p, err := SpectrumPlot(s, "Texture model spectrum ("+filepath.Base(path)+")")
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return errors.Wrapf(err, "SaveSpectrum %s", path)
	}
	return nil
}
