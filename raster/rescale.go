package raster

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ScaledSize returns the size of an image of the given bounds rescaled by s.
// Each side is the rounded scaled length, grown when needed so the last
// source pixel centre, at s·(n-1), still lies inside the result.
func ScaledSize(b image.Rectangle, s float64) (w, h int) {
	return scaledSide(b.Dx(), s), scaledSide(b.Dy(), s)
}

func scaledSide(n int, s float64) int {
	if n <= 0 {
		return 1
	}
	side := int(math.Round(float64(n) * s))
	return max(1, side, int(math.Ceil(s*float64(n-1)))+1)
}

// Rescale resamples src by s with bilinear interpolation. Source pixel
// centre (i, j) maps exactly to destination position (s·i, s·j), so points
// scaled by s stay aligned with the result.
func Rescale(src *image.Gray, s float64) *image.Gray {
	b := src.Bounds()
	w, h := ScaledSize(b, s)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if b.Empty() {
		return dst
	}

	// x/image/draw places pixel centres at +0.5; shift so integer centres
	// map onto integer centres.
	t := 0.5 - 0.5*s
	s2d := f64.Aff3{
		s, 0, t - s*float64(b.Min.X),
		0, s, t - s*float64(b.Min.Y),
	}
	padded := padEdges(src, int(math.Ceil(1/s))+1)
	draw.BiLinear.Transform(dst, s2d, padded, padded.Bounds(), draw.Src, nil)
	return dst
}

// padEdges replicates the border pixels of src pad pixels outwards, so
// destination pixels past the last source centre are still drawn.
func padEdges(src *image.Gray, pad int) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(b.Inset(-pad))
	for y := out.Rect.Min.Y; y < out.Rect.Max.Y; y++ {
		sy := min(max(y, b.Min.Y), b.Max.Y-1)
		for x := out.Rect.Min.X; x < out.Rect.Max.X; x++ {
			sx := min(max(x, b.Min.X), b.Max.X-1)
			out.Pix[out.PixOffset(x, y)] = src.Pix[src.PixOffset(sx, sy)]
		}
	}
	return out
}

// ToGray converts img to 8-bit luminance with its origin at (0, 0).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[4*x]
		}
	}
	return gray
}
