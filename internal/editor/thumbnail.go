package editor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"slices"

	"imagetools-go/internal/imageio"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/sirupsen/logrus"
)

// ThumbnailSizes are the supported square box sides in pixels.
var ThumbnailSizes = []int{16, 24, 32, 48, 64, 92, 128}

// ThumbnailOptions configures Thumbnail.
type ThumbnailOptions struct {
	Sizes []int
	// Favicon writes all sizes into a single "<name>.ico" instead of one file per size.
	Favicon bool
}

func (o ThumbnailOptions) validate() error {
	if len(o.Sizes) == 0 {
		return imageio.InvalidParameterf("at least one thumbnail size is required")
	}
	for _, s := range o.Sizes {
		if !slices.Contains(ThumbnailSizes, s) {
			return imageio.InvalidParameterf("unsupported thumbnail size %d (supported: %v)", s, ThumbnailSizes)
		}
	}
	return nil
}

// Thumbnail writes a thumbnail of every requested size for every image. Each
// thumbnail keeps the aspect ratio and fits inside its square box.
func (e *Editor) Thumbnail(ctx context.Context, dir string, images []string, opts ThumbnailOptions) ([]Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	sizes := slices.Clone(opts.Sizes)
	slices.Sort(sizes)
	sizes = slices.Compact(sizes)

	return e.run(ctx, "thumbnail", dir, images, func(res *Result, entry *logrus.Entry) error {
		img, err := e.load(res)
		if err != nil {
			return err
		}

		if opts.Favicon {
			icons := make([]image.Image, 0, len(sizes))
			for _, s := range sizes {
				thumb := resize.Thumbnail(uint(s), uint(s), img, resize.Lanczos3)
				icons = append(icons, imaging.PasteCenter(imaging.New(s, s, color.Transparent), thumb))
			}
			var buf bytes.Buffer
			if err := writeICO(&buf, icons); err != nil {
				return imageio.NewError(imageio.KindEncode, res.InputPath, err)
			}
			path := filepath.Join(e.outputDir, baseName(res.Image)+".ico")
			if err := imageio.WriteFile(path, buf.Bytes()); err != nil {
				return err
			}
			res.OutputPaths = append(res.OutputPaths, path)
			res.Message = fmt.Sprintf("Favicon with sizes %v created for image %s", sizes, res.Image)
			return nil
		}

		for _, s := range sizes {
			thumb := resize.Thumbnail(uint(s), uint(s), img, resize.Lanczos3)
			name := fmt.Sprintf("%s_%dpx%s", baseName(res.Image), s, filepath.Ext(res.Image))
			if err := e.save(res, name, thumb, res.Format); err != nil {
				return err
			}
			entry.Debugf("Wrote %dpx thumbnail", s)
		}
		res.Message = fmt.Sprintf("Thumbnails %v created for image %s", sizes, res.Image)
		return nil
	})
}
