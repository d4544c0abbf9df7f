package editor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"imagetools-go/internal/imageio"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

var (
	startPattern       = regexp.MustCompile(`--START\s+(\d+)`)
	placeholderPattern = regexp.MustCompile(`--INDEX|--START\s+\d+`)
)

// RenamePattern names converted files "<Base><index>". The index starts at Start
// and advances for every image in the batch, converted or not.
type RenamePattern struct {
	Base  string
	Start int
}

// ParseRenamePattern reads a base name that may carry the --INDEX and --START n
// placeholders. The start index defaults to 1.
func ParseRenamePattern(s string) RenamePattern {
	p := RenamePattern{Start: 1}
	if m := startPattern.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			p.Start = n
		}
	}
	p.Base = strings.TrimSpace(placeholderPattern.ReplaceAllString(s, ""))
	return p
}

// Name returns the file name for the i-th image of the batch.
func (p RenamePattern) Name(i int, format imageio.Format) string {
	return fmt.Sprintf("%s%d%s", p.Base, p.Start+i, format.Extension())
}

// ConvertOptions configures Convert.
type ConvertOptions struct {
	Target imageio.Format
	// Rename, when set, replaces the original base names.
	Rename *RenamePattern
}

// Convert re-encodes every image into opts.Target. Images already in the
// target format are skipped.
func (e *Editor) Convert(ctx context.Context, dir string, images []string, opts ConvertOptions) ([]Result, error) {
	if opts.Target == imageio.FormatUnknown || !opts.Target.CanEncode() {
		return nil, imageio.InvalidParameterf("cannot convert to %s", opts.Target)
	}

	index := 0
	return e.run(ctx, "convert", dir, images, func(res *Result, entry *logrus.Entry) error {
		i := index
		index++

		if format, err := imageio.FormatFromPath(res.Image); err == nil && format == opts.Target {
			res.Format = format
			res.Skipped = true
			res.Message = fmt.Sprintf("Image %s already has format %s", res.Image, opts.Target)
			return nil
		}

		img, err := e.load(res)
		if err != nil {
			return err
		}

		name := baseName(res.Image) + opts.Target.Extension()
		if opts.Rename != nil {
			name = opts.Rename.Name(i, opts.Target)
		}
		if !opts.Target.HasAlpha() {
			img = flatten(img)
		}
		if err := e.save(res, name, img, opts.Target); err != nil {
			return err
		}
		entry.Debugf("Converted %s to %s as %s", res.Format, opts.Target, name)
		res.Format = opts.Target
		res.Message = fmt.Sprintf("Image %s: Converted to %s and saved to %s", res.Image, opts.Target, e.outputDir)
		return nil
	})
}

// flatten composites img onto an opaque white background.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
