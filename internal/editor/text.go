package editor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imagetools-go/internal/imageio"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// textMargin is the distance in pixels between the text and the image border.
const textMargin = 10

// TextPosition anchors the text box inside the image.
type TextPosition int

const (
	TopLeft TextPosition = iota
	TopRight
	Center
	BottomLeft
	BottomRight
)

var positionNames = map[string]TextPosition{
	"top-left":     TopLeft,
	"top-right":    TopRight,
	"center":       Center,
	"bottom-left":  BottomLeft,
	"bottom-right": BottomRight,
}

// ParseTextPosition accepts names like "top-left" or "Bottom Right".
func ParseTextPosition(s string) (TextPosition, error) {
	key := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), "-"))
	if p, ok := positionNames[key]; ok {
		return p, nil
	}
	return TopLeft, imageio.InvalidParameterf("unknown text position %q", s)
}

func (p TextPosition) String() string {
	for name, v := range positionNames {
		if v == p {
			return name
		}
	}
	return "unknown"
}

// origin returns the top-left corner of a w x h box placed inside an imgW x imgH image.
func (p TextPosition) origin(imgW, imgH, w, h int) image.Point {
	switch p {
	case TopRight:
		return image.Pt(imgW-w-textMargin, textMargin)
	case Center:
		return image.Pt((imgW-w)/2, (imgH-h)/2)
	case BottomLeft:
		return image.Pt(textMargin, imgH-h-textMargin)
	case BottomRight:
		return image.Pt(imgW-w-textMargin, imgH-h-textMargin)
	default:
		return image.Pt(textMargin, textMargin)
	}
}

var textColors = map[string]color.Color{
	"black": color.Black,
	"white": color.White,
	"red":   color.RGBA{R: 255, A: 255},
	"blue":  color.RGBA{B: 255, A: 255},
	"green": color.RGBA{G: 128, A: 255},
}

// ParseTextColor accepts black, white, red, blue or green.
func ParseTextColor(s string) (color.Color, error) {
	if c, ok := textColors[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return nil, imageio.InvalidParameterf("unknown text color %q", s)
}

// TextOptions configures AddText.
type TextOptions struct {
	Text string
	// Font is a file name inside the fonts directory. Empty uses a built-in bitmap face.
	Font string
	// SizePercent is the font size as a percentage of the image width.
	SizePercent int
	Color       color.Color
	Position    TextPosition
}

// AvailableFonts lists the TrueType and OpenType files in dir.
func AvailableFonts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, imageio.NewError(imageio.KindPathNotFound, dir, err)
	}
	var fonts []string
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !entry.IsDir() && (ext == ".ttf" || ext == ".otf") {
			fonts = append(fonts, entry.Name())
		}
	}
	sort.Strings(fonts)
	return fonts, nil
}

// AddText draws opts.Text onto every image and saves it under its own name.
func (e *Editor) AddText(ctx context.Context, dir string, images []string, opts TextOptions) ([]Result, error) {
	if strings.TrimSpace(opts.Text) == "" {
		return nil, imageio.InvalidParameterf("text must not be empty")
	}
	if opts.SizePercent <= 0 || opts.SizePercent > 100 {
		return nil, imageio.InvalidParameterf("font size must be between 1 and 100 percent of the image width, got %d", opts.SizePercent)
	}
	if opts.Color == nil {
		opts.Color = color.Black
	}

	var ttf *truetype.Font
	if opts.Font != "" {
		var err error
		if ttf, err = e.loadFont(opts.Font); err != nil {
			return nil, err
		}
	}

	return e.run(ctx, "add-text", dir, images, func(res *Result, entry *logrus.Entry) error {
		img, err := e.load(res)
		if err != nil {
			return err
		}
		out := drawText(img, ttf, opts)
		if err := e.save(res, res.Image, out, res.Format); err != nil {
			return err
		}
		res.Message = fmt.Sprintf("Text added to image %s and saved to %s", res.Image, e.outputDir)
		return nil
	})
}

func (e *Editor) loadFont(name string) (*truetype.Font, error) {
	path := filepath.Join(e.fontsDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imageio.NewError(imageio.KindPathNotFound, path, err)
	}
	f, err := freetype.ParseFont(data)
	if err != nil {
		return nil, imageio.NewError(imageio.KindInvalidParameter, path, fmt.Errorf("parse font: %w", err))
	}
	return f, nil
}

func drawText(img image.Image, ttf *truetype.Font, opts TextOptions) *image.NRGBA {
	dst := imaging.Clone(img)
	b := dst.Bounds()

	var face font.Face = basicfont.Face7x13
	if ttf != nil {
		size := max(float64(opts.SizePercent)*float64(b.Dx())/100, 1)
		face = truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72})
		defer face.Close()
	}

	bounds, _ := font.BoundString(face, opts.Text)
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()
	at := opts.Position.origin(b.Dx(), b.Dy(), w, h)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(opts.Color),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(at.X) - bounds.Min.X, Y: fixed.I(at.Y) - bounds.Min.Y},
	}
	d.DrawString(opts.Text)
	return dst
}
