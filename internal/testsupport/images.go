package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// Gradient selects the horizontal ramp drawn inside a product fixture.
type Gradient int

const (
	// Flat fills the product with a single dark tone.
	Flat Gradient = iota
	// Ascending brightens left to right.
	Ascending
	// Descending darkens left to right.
	Descending
)

// ProductImage describes a synthetic listing photo: a product square on a
// white canvas.
type ProductImage struct {
	CanvasW, CanvasH int
	X, Y, Size       int
	Fill             Gradient
}

// Render draws the fixture.
func (p ProductImage) Render() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, p.CanvasW, p.CanvasH))
	for y := 0; y < p.CanvasH; y++ {
		for x := 0; x < p.CanvasW; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	for y := p.Y; y < p.Y+p.Size && y < p.CanvasH; y++ {
		for x := p.X; x < p.X+p.Size && x < p.CanvasW; x++ {
			v := p.tone(x - p.X)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func (p ProductImage) tone(offset int) uint8 {
	const maxTone = 200
	if p.Size <= 1 {
		return 0
	}
	step := float64(offset) / float64(p.Size-1)
	switch p.Fill {
	case Ascending:
		return uint8(step * maxTone)
	case Descending:
		return uint8((1 - step) * maxTone)
	default:
		return 20
	}
}

// PNG encodes the fixture.
func (p ProductImage) PNG(t testing.TB) []byte {
	t.Helper()
	return EncodePNG(t, p.Render())
}

// Write renders the fixture as a PNG at path.
func (p ProductImage) Write(t testing.TB, path string) {
	t.Helper()
	WriteFile(t, path, p.PNG(t))
}

// BlankPNG is an all-white image with no foreground.
func BlankPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	return ProductImage{CanvasW: w, CanvasH: h}.PNG(t)
}

// EncodePNG encodes img or fails the test.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
