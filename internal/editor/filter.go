package editor

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"

	"imagetools-go/internal/imageio"

	"github.com/disintegration/gift"
	"github.com/sirupsen/logrus"
)

// Filter names a whole-image effect.
type Filter string

const (
	FilterGrayscale  Filter = "grayscale"
	FilterSepia      Filter = "sepia"
	FilterInvert     Filter = "invert"
	FilterBlur       Filter = "blur"
	FilterSharpen    Filter = "sharpen"
	FilterContrast   Filter = "contrast"
	FilterBrightness Filter = "brightness"
	FilterEdges      Filter = "edges"
	FilterPixelate   Filter = "pixelate"
	FilterEmboss     Filter = "emboss"
)

var filters = map[Filter]func() []gift.Filter{
	FilterGrayscale:  func() []gift.Filter { return []gift.Filter{gift.Grayscale()} },
	FilterSepia:      func() []gift.Filter { return []gift.Filter{gift.Sepia(100)} },
	FilterInvert:     func() []gift.Filter { return []gift.Filter{gift.Invert()} },
	FilterBlur:       func() []gift.Filter { return []gift.Filter{gift.GaussianBlur(2)} },
	FilterSharpen:    func() []gift.Filter { return []gift.Filter{gift.UnsharpMask(1, 1.5, 0)} },
	FilterContrast:   func() []gift.Filter { return []gift.Filter{gift.Contrast(30)} },
	FilterBrightness: func() []gift.Filter { return []gift.Filter{gift.Brightness(20)} },
	FilterEdges:      func() []gift.Filter { return []gift.Filter{gift.Grayscale(), gift.Sobel()} },
	FilterPixelate:   func() []gift.Filter { return []gift.Filter{gift.Pixelate(8)} },
	FilterEmboss: func() []gift.Filter {
		return []gift.Filter{gift.Convolution(
			[]float32{
				-1, -1, 0,
				-1, 1, 1,
				0, 1, 1,
			},
			false, false, false, 0,
		)}
	},
}

// ParseFilter accepts a filter name; "black-and-white" and "bw" mean grayscale.
func ParseFilter(name string) (Filter, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "bw", "black-and-white", "blackandwhite", "gray", "greyscale":
		n = string(FilterGrayscale)
	}
	f := Filter(n)
	if _, ok := filters[f]; !ok {
		return "", imageio.InvalidParameterf("unknown filter %q (available: %s)", name, strings.Join(FilterNames(), ", "))
	}
	return f, nil
}

// FilterNames lists the available filters.
func FilterNames() []string {
	names := make([]string, 0, len(filters))
	for f := range filters {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// Apply runs the filter over img.
func (f Filter) Apply(img image.Image) (image.Image, error) {
	build, ok := filters[f]
	if !ok {
		return nil, imageio.InvalidParameterf("unknown filter %q", string(f))
	}
	g := gift.New(build()...)
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst, nil
}

// ApplyFilter applies f to every image and saves it under its own name.
func (e *Editor) ApplyFilter(ctx context.Context, dir string, images []string, f Filter) ([]Result, error) {
	if _, ok := filters[f]; !ok {
		return nil, imageio.InvalidParameterf("unknown filter %q", string(f))
	}
	return e.run(ctx, "filter", dir, images, func(res *Result, entry *logrus.Entry) error {
		img, err := e.load(res)
		if err != nil {
			return err
		}
		out, err := f.Apply(img)
		if err != nil {
			return err
		}
		if err := e.save(res, res.Image, out, res.Format); err != nil {
			return err
		}
		res.Message = fmt.Sprintf("Filter %s applied to image %s and saved to %s", f, res.Image, e.outputDir)
		return nil
	})
}
