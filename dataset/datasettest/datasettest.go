// Package datasettest writes small synthetic datasets for tests.
package datasettest

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r3"
)

// GridN is the number of vertices along each side of a synthetic face.
const GridN = 5

// Face places a flat GridN×GridN vertex grid in a Width×Height image. The
// grid covers the square [X0, X0+Size]×[Y0, Y0+Size] in pixel coordinates at
// constant depth Depth. The image is a linear ramp along (1, Tilt); Tilt
// must not be negative.
type Face struct {
	Width, Height int
	X0, Y0, Size  float64
	Depth         float64
	Tilt          float64
}

// Points returns the grid vertices in pixel-aligned mesh coordinates, row by
// row.
func (f Face) Points() []r3.Vector {
	pts := make([]r3.Vector, 0, GridN*GridN)
	step := f.Size / float64(GridN-1)
	for r := 0; r < GridN; r++ {
		for c := 0; c < GridN; c++ {
			pts = append(pts, r3.Vector{X: f.X0 + float64(c)*step, Y: f.Y0 + float64(r)*step, Z: f.Depth})
		}
	}
	return pts
}

// Triangles returns the zero-based connectivity of the grid, two triangles
// per cell.
func Triangles() [][3]int {
	var tris [][3]int
	for r := 0; r < GridN-1; r++ {
		for c := 0; c < GridN-1; c++ {
			v := r*GridN + c
			tris = append(tris, [3]int{v, v + 1, v + GridN}, [3]int{v + 1, v + GridN + 1, v + GridN})
		}
	}
	return tris
}

// WriteTrilist writes the grid connectivity as a 3×M one-based matrix.
func WriteTrilist(t testing.TB, path string) {
	t.Helper()
	tris := Triangles()
	var sb strings.Builder
	for k := 0; k < 3; k++ {
		for j, tri := range tris {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d", tri[k]+1)
		}
		sb.WriteByte('\n')
	}
	writeFile(t, path, sb.String())
}

// WriteSample writes name.png under imageRoot and the matching raw fit under
// fitRoot.
func WriteSample(t testing.TB, imageRoot, fitRoot, name string, f Face) (imagePath, fitPath string) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			v := uint8((float64(x) + f.Tilt*float64(y)) * 255 / (float64(f.Width) + f.Tilt*float64(f.Height)))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	imagePath = filepath.Join(imageRoot, name+".png")
	if err := os.MkdirAll(filepath.Dir(imagePath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(img, imagePath); err != nil {
		t.Fatal(err)
	}

	// raw: x = col + 1, y = height - row, z = -depth
	pts := f.Points()
	var sb strings.Builder
	for k := 0; k < 3; k++ {
		for j, p := range pts {
			if j > 0 {
				sb.WriteByte(' ')
			}
			var v float64
			switch k {
			case 0:
				v = p.X + 1
			case 1:
				v = float64(f.Height) - p.Y
			case 2:
				v = -p.Z
			}
			fmt.Fprintf(&sb, "%g", v)
		}
		sb.WriteByte('\n')
	}
	fitPath = filepath.Join(fitRoot, name+".txt")
	writeFile(t, fitPath, sb.String())
	return imagePath, fitPath
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
