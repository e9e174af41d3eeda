// Package raster provides the dense floating point images the texture
// pipeline works on, and the grayscale resampling used during normalization.
//
// An Image stores Channels values per pixel, interleaved, rows top to bottom.
// Pixel centres sit at integer coordinates, matching mesh vertex coordinates.
package raster

import (
	"image"
	"math"
)

// Image is a multi-channel float64 image.
type Image struct {
	Pix      []float64
	Width    int
	Height   int
	Channels int
}

// New allocates a zeroed width×height image with the given channel count.
func New(width, height, channels int) *Image {
	return &Image{
		Pix:      make([]float64, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// PixOffset returns the index in Pix of channel 0 at (x, y).
func (im *Image) PixOffset(x, y int) int {
	return (y*im.Width + x) * im.Channels
}

// At returns channel c at (x, y).
func (im *Image) At(x, y, c int) float64 {
	return im.Pix[im.PixOffset(x, y)+c]
}

// Set sets channel c at (x, y).
func (im *Image) Set(x, y, c int, v float64) {
	im.Pix[im.PixOffset(x, y)+c] = v
}

// Pixel returns the channels at (x, y) as a slice aliasing Pix.
func (im *Image) Pixel(x, y int) []float64 {
	i := im.PixOffset(x, y)
	return im.Pix[i : i+im.Channels]
}

// InBounds reports whether the continuous position (x, y) lies within the
// pixel-centre hull of the image, so bilinear sampling needs no extrapolation.
func (im *Image) InBounds(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= float64(im.Width-1) && y <= float64(im.Height-1)
}

// Bilinear samples every channel at (x, y) into dst, which must hold
// Channels values. It returns false, leaving dst untouched, when the position
// is out of bounds.
func (im *Image) Bilinear(x, y float64, dst []float64) bool {
	if !im.InBounds(x, y) {
		return false
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1, y1 := x0+1, y0+1
	if x1 >= im.Width {
		x1 = x0
	}
	if y1 >= im.Height {
		y1 = y0
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	p00 := im.Pixel(x0, y0)
	p10 := im.Pixel(x1, y0)
	p01 := im.Pixel(x0, y1)
	p11 := im.Pixel(x1, y1)
	for c := 0; c < im.Channels; c++ {
		top := p00[c]*(1-fx) + p10[c]*fx
		bottom := p01[c]*(1-fx) + p11[c]*fx
		dst[c] = top*(1-fy) + bottom*fy
	}
	return true
}

// FromGray converts an 8-bit grayscale image into a single channel Image with
// values in [0, 1]. The result always starts at (0, 0).
func FromGray(g *image.Gray) *Image {
	b := g.Bounds()
	im := New(b.Dx(), b.Dy(), 1)
	for y := 0; y < im.Height; y++ {
		start := g.PixOffset(b.Min.X, b.Min.Y+y)
		row := g.Pix[start : start+im.Width]
		for x, v := range row {
			im.Pix[y*im.Width+x] = float64(v) / 255
		}
	}
	return im
}
