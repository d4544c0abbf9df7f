package imageio

import (
	"image"

	"github.com/disintegration/imaging"
)

// ScaledDimensions truncates percent*size/100 for both sides and clamps each to at least 1px.
func ScaledDimensions(width, height, percent int) (int, int) {
	w := percent * width / 100
	h := percent * height / 100
	return max(w, 1), max(h, 1)
}

// RescalePercent resizes img proportionally by percent using a Lanczos filter.
func RescalePercent(img image.Image, percent int) (*image.NRGBA, error) {
	if percent <= 0 {
		return nil, InvalidParameterf("scale percent must be positive, got %d", percent)
	}
	b := img.Bounds()
	w, h := ScaledDimensions(b.Dx(), b.Dy(), percent)
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}
