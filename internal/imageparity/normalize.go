package imageparity

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

const (
	// BackgroundThreshold is the per-channel value at or above which a pixel
	// is treated as background.
	BackgroundThreshold = 240
	// NormalizedSize is the edge length of the square every image is resized to.
	NormalizedSize = 256
)

// ErrNoForeground is returned when an image is entirely background.
var ErrNoForeground = errors.New("no foreground region")

// NormalizeImage crops src to the bounding box of its largest foreground
// region and resizes it to NormalizedSize square with a Lanczos filter.
func NormalizeImage(src image.Image) (*image.NRGBA, error) {
	img := imaging.Clone(src)
	box, ok := foregroundBounds(img, BackgroundThreshold)
	if !ok {
		return nil, ErrNoForeground
	}
	cropped := imaging.Crop(img, box)
	return imaging.Resize(cropped, NormalizedSize, NormalizedSize, imaging.Lanczos), nil
}

// foregroundBounds labels 8-connected foreground components and returns the
// bounding box of the one with the most pixels. Fully transparent pixels count
// as background.
func foregroundBounds(img *image.NRGBA, threshold uint8) (image.Rectangle, bool) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return image.Rectangle{}, false
	}

	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			fg[y*w+x] = p[3] != 0 && (p[0] < threshold || p[1] < threshold || p[2] < threshold)
		}
	}

	visited := make([]bool, w*h)
	stack := make([]int, 0, 1024)
	var best image.Rectangle
	bestArea := 0

	for start, isFG := range fg {
		if !isFG || visited[start] {
			continue
		}
		visited[start] = true
		stack = append(stack[:0], start)
		minX, minY, maxX, maxY := w, h, -1, -1
		area := 0

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			area++
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if (dx == 0 && dy == 0) || nx < 0 || nx >= w {
						continue
					}
					n := ny*w + nx
					if fg[n] && !visited[n] {
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}
		}

		if area > bestArea {
			bestArea = area
			best = image.Rect(minX, minY, maxX+1, maxY+1)
		}
	}
	return best, bestArea > 0
}
