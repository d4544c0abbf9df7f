package editor

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"

	"imagetools-go/internal/imageio"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// FilterQuality selects the resampling filter of a fixed-size resize.
type FilterQuality int

const (
	// FilterNormal resamples with a bicubic (Catmull-Rom) filter.
	FilterNormal FilterQuality = iota
	// FilterHigh resamples with Lanczos.
	FilterHigh
)

// ParseFilterQuality parses "normal" or "high".
func ParseFilterQuality(s string) (FilterQuality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return FilterNormal, nil
	case "high":
		return FilterHigh, nil
	default:
		return FilterNormal, imageio.InvalidParameterf("unknown resize quality %q (want normal or high)", s)
	}
}

func (q FilterQuality) String() string {
	if q == FilterHigh {
		return "high"
	}
	return "normal"
}

func (q FilterQuality) filter() imaging.ResampleFilter {
	if q == FilterHigh {
		return imaging.Lanczos
	}
	return imaging.CatmullRom
}

// ResizeMode is either a FixedSize or a Percent.
type ResizeMode interface {
	apply(img image.Image) (image.Image, error)
	String() string
}

// FixedSize resizes to exact dimensions without preserving the aspect ratio.
type FixedSize struct {
	Width   int
	Height  int
	Quality FilterQuality
}

func (m FixedSize) apply(img image.Image) (image.Image, error) {
	if m.Width <= 0 || m.Height <= 0 {
		return nil, imageio.InvalidParameterf("width and height must be positive, got %dx%d", m.Width, m.Height)
	}
	return imaging.Resize(img, m.Width, m.Height, m.Quality.filter()), nil
}

func (m FixedSize) String() string {
	return fmt.Sprintf("%dx%d (%s)", m.Width, m.Height, m.Quality)
}

// Percent scales both sides by a percentage.
type Percent struct {
	Percent int
}

func (m Percent) apply(img image.Image) (image.Image, error) {
	return imageio.RescalePercent(img, m.Percent)
}

func (m Percent) String() string {
	return fmt.Sprintf("%d%%", m.Percent)
}

// ParseResizeMode parses "WIDTHxHEIGHT" or "N%".
func ParseResizeMode(s string, quality FilterQuality) (ResizeMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil || n <= 0 {
			return nil, imageio.InvalidParameterf("invalid resize percentage %q", s)
		}
		return Percent{Percent: n}, nil
	}

	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return nil, imageio.InvalidParameterf("invalid resize %q (want WIDTHxHEIGHT or N%%)", s)
	}
	width, errW := strconv.Atoi(strings.TrimSpace(w))
	height, errH := strconv.Atoi(strings.TrimSpace(h))
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return nil, imageio.InvalidParameterf("invalid resize dimensions %q", s)
	}
	return FixedSize{Width: width, Height: height, Quality: quality}, nil
}

// Resize resizes every image and saves it under its own name.
func (e *Editor) Resize(ctx context.Context, dir string, images []string, mode ResizeMode) ([]Result, error) {
	if mode == nil {
		return nil, imageio.InvalidParameterf("a resize mode is required")
	}
	return e.run(ctx, "resize", dir, images, func(res *Result, entry *logrus.Entry) error {
		img, err := e.load(res)
		if err != nil {
			return err
		}
		resized, err := mode.apply(img)
		if err != nil {
			return err
		}
		if err := e.save(res, res.Image, resized, res.Format); err != nil {
			return err
		}
		b := resized.Bounds()
		res.Message = fmt.Sprintf("Image %s resized to %dx%d and saved to %s", res.Image, b.Dx(), b.Dy(), e.outputDir)
		return nil
	})
}
