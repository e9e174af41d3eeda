// Package mesh holds triangulated 3D mesh fits and their shared connectivity.
//
// Points are stored in pixel-aligned image coordinates: X is the column, Y is
// the row (both with pixel centres at integer values) and Z is depth, where a
// smaller Z is nearer to the camera. The triangle list is shared by pointer
// between every mesh of a dataset and is never modified after loading.
package mesh

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

// Trilist is an immutable list of zero-based vertex index triples.
type Trilist struct {
	triangles [][3]int
	maxIndex  int
}

// NewTrilist wraps triangles. The slice is owned by the Trilist afterwards.
func NewTrilist(triangles [][3]int) *Trilist {
	maxIndex := -1
	for _, tri := range triangles {
		for _, v := range tri {
			if v > maxIndex {
				maxIndex = v
			}
		}
	}
	return &Trilist{triangles: triangles, maxIndex: maxIndex}
}

// Len returns the number of triangles.
func (t *Trilist) Len() int { return len(t.triangles) }

// At returns triangle i.
func (t *Trilist) At(i int) [3]int { return t.triangles[i] }

// Triangles returns the underlying triangles. Callers must not modify them.
func (t *Trilist) Triangles() [][3]int { return t.triangles }

// MaxIndex returns the largest vertex index referenced, or -1 when empty.
func (t *Trilist) MaxIndex() int { return t.maxIndex }

// TriMesh is an ordered point set with shared triangle connectivity.
type TriMesh struct {
	Points  []r3.Vector
	Trilist *Trilist
}

// New builds a TriMesh, checking that every point is finite and every
// triangle index refers to a point.
func New(points []r3.Vector, trilist *Trilist) (*TriMesh, error) {
	if len(points) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "mesh.New: no points")
	}
	if trilist == nil {
		return nil, errors.NewValueError("mesh.New", "nil trilist")
	}
	if err := checkFinite("mesh.New", points); err != nil {
		return nil, err
	}
	for i, tri := range trilist.triangles {
		for _, v := range tri {
			if v < 0 || v >= len(points) {
				return nil, errors.NewValueError("mesh.New",
					fmt.Sprintf("triangle %d references vertex %d, mesh has %d points", i, v, len(points)))
			}
		}
	}
	return &TriMesh{Points: points, Trilist: trilist}, nil
}

// CheckFinite returns a NumericalInstabilityError when any coordinate is NaN
// or infinite. Bounds2D silently skips such points, so callers that did not
// build the mesh with New check it before measuring.
func (m *TriMesh) CheckFinite() error {
	return checkFinite("TriMesh.CheckFinite", m.Points)
}

func checkFinite(op string, points []r3.Vector) error {
	for i, p := range points {
		if err := errors.CheckNumericalStability(op, []float64{p.X, p.Y, p.Z}, i); err != nil {
			return errors.Wrapf(err, "point %d is not finite", i)
		}
	}
	return nil
}

// NVertices returns the number of points.
func (m *TriMesh) NVertices() int { return len(m.Points) }

// Bounds2D returns the bounding box of the points projected onto the image
// plane (X, Y).
func (m *TriMesh) Bounds2D() r2.Rect {
	pts := make([]r2.Point, len(m.Points))
	for i, p := range m.Points {
		pts[i] = r2.Point{X: p.X, Y: p.Y}
	}
	return r2.RectFromPoints(pts...)
}

// Diagonal returns the length of the 2D bounding box diagonal.
func (m *TriMesh) Diagonal() float64 {
	size := m.Bounds2D().Size()
	return math.Hypot(size.X, size.Y)
}

// Scaled returns a copy with every coordinate, depth included, multiplied by s.
// The trilist is shared, not copied.
func (m *TriMesh) Scaled(s float64) *TriMesh {
	pts := make([]r3.Vector, len(m.Points))
	for i, p := range m.Points {
		pts[i] = p.Mul(s)
	}
	return &TriMesh{Points: pts, Trilist: m.Trilist}
}

// Translated returns a copy shifted by (dx, dy) in the image plane.
func (m *TriMesh) Translated(dx, dy float64) *TriMesh {
	offset := r3.Vector{X: dx, Y: dy}
	pts := make([]r3.Vector, len(m.Points))
	for i, p := range m.Points {
		pts[i] = p.Add(offset)
	}
	return &TriMesh{Points: pts, Trilist: m.Trilist}
}
