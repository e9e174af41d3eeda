package texture

import (
	"math"

	"github.com/YuminosukeSato/itwmm/mesh"
	"github.com/YuminosukeSato/itwmm/raster"
)

// Sample reads the feature vector at every vertex of m.
//
// The row is vertex-major: entries v*C .. v*C+C-1 hold the C channels of
// vertex v. Vertices outside the image are NaN with mask false. Occluded
// vertices keep their sampled value but are masked out too.
func Sample(feat *raster.Image, m *mesh.TriMesh, tolerance float64) (row []float64, mask []bool) {
	c := feat.Channels
	row = make([]float64, len(m.Points)*c)
	mask = Visibility(m, feat.Width, feat.Height, tolerance)

	for v, p := range m.Points {
		dst := row[v*c : (v+1)*c]
		if !feat.Bilinear(p.X, p.Y, dst) {
			for i := range dst {
				dst[i] = math.NaN()
			}
			mask[v] = false
		}
	}
	return row, mask
}
