package texture

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/YuminosukeSato/itwmm/core/parallel"
	"github.com/YuminosukeSato/itwmm/mesh"
)

// DefaultDepthTolerance is how far behind the rasterized surface a vertex may
// lie and still count as visible, in normalized pixel units.
const DefaultDepthTolerance = 1.0

// rasterBandRows is the height of the row bands the z-buffer is split into.
// Triangles are bucketed per band once, so a worker only visits the
// triangles that overlap its rows.
const rasterBandRows = 32

type rasterTri struct {
	a, b, c r3.Vector
	area    float64
	x0, x1  int
	y0, y1  int
}

// DepthBuffer rasterizes the triangles of m into a width×height buffer
// holding the smallest depth per pixel centre. Uncovered pixels hold +Inf.
func DepthBuffer(m *mesh.TriMesh, width, height int) []float64 {
	zbuf := make([]float64, width*height)
	for i := range zbuf {
		zbuf[i] = math.Inf(1)
	}
	if width == 0 || height == 0 {
		return zbuf
	}

	nBands := (height + rasterBandRows - 1) / rasterBandRows
	bands := make([][]rasterTri, nBands)
	for _, tri := range m.Trilist.Triangles() {
		rt, ok := newRasterTri(m.Points[tri[0]], m.Points[tri[1]], m.Points[tri[2]], width, height)
		if !ok {
			continue
		}
		for band := rt.y0 / rasterBandRows; band <= rt.y1/rasterBandRows; band++ {
			bands[band] = append(bands[band], rt)
		}
	}

	// each worker owns whole bands, so writes never overlap
	parallel.ParallelizeWithThreshold(nBands, 1, func(bandStart, bandEnd int) {
		for band := bandStart; band < bandEnd; band++ {
			rowStart := band * rasterBandRows
			rowEnd := min(height, rowStart+rasterBandRows)
			for _, rt := range bands[band] {
				rasterize(zbuf, width, rt, max(rowStart, rt.y0), min(rowEnd-1, rt.y1))
			}
		}
	})
	return zbuf
}

// newRasterTri clips the pixel-centre bounding box of abc to the image. It
// reports false for degenerate triangles and ones that cover no pixel centre.
func newRasterTri(a, b, c r3.Vector, width, height int) (rasterTri, bool) {
	area := edge(a.X, a.Y, b.X, b.Y, c.X, c.Y)
	if math.Abs(area) < 1e-12 {
		return rasterTri{}, false
	}
	rt := rasterTri{
		a: a, b: b, c: c, area: area,
		x0: max(0, int(math.Ceil(min(a.X, b.X, c.X)))),
		x1: min(width-1, int(math.Floor(max(a.X, b.X, c.X)))),
		y0: max(0, int(math.Ceil(min(a.Y, b.Y, c.Y)))),
		y1: min(height-1, int(math.Floor(max(a.Y, b.Y, c.Y)))),
	}
	return rt, rt.x0 <= rt.x1 && rt.y0 <= rt.y1
}

// rasterize writes the depth of rt into rows [y0, y1] of zbuf.
func rasterize(zbuf []float64, width int, rt rasterTri, y0, y1 int) {
	a, b, c := rt.a, rt.b, rt.c
	for y := y0; y <= y1; y++ {
		py := float64(y)
		for x := rt.x0; x <= rt.x1; x++ {
			px := float64(x)
			wa := edge(b.X, b.Y, c.X, c.Y, px, py) / rt.area
			wb := edge(c.X, c.Y, a.X, a.Y, px, py) / rt.area
			wc := 1 - wa - wb
			if wa < -1e-9 || wb < -1e-9 || wc < -1e-9 {
				continue
			}
			z := wa*a.Z + wb*b.Z + wc*c.Z
			if i := y*width + x; z < zbuf[i] {
				zbuf[i] = z
			}
		}
	}
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// Visibility reports, per vertex, whether the vertex projects inside a
// width×height image and is not hidden behind another part of the mesh.
// A vertex is visible when its depth is within tolerance of the z-buffer at
// its nearest pixel centre; a pixel no triangle covers never occludes.
func Visibility(m *mesh.TriMesh, width, height int, tolerance float64) []bool {
	zbuf := DepthBuffer(m, width, height)
	visible := make([]bool, len(m.Points))
	for v, p := range m.Points {
		if p.X < 0 || p.Y < 0 || p.X > float64(width-1) || p.Y > float64(height-1) {
			continue
		}
		x := int(math.Round(p.X))
		y := int(math.Round(p.Y))
		visible[v] = p.Z <= zbuf[y*width+x]+tolerance
	}
	return visible
}
