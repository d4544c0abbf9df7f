package tui

import (
	"strconv"
	"strings"

	"imagetools-go/internal/editor"
	"imagetools-go/internal/imageio"
)

// Operation is an entry of the main menu.
type Operation int

const (
	OpReduce Operation = iota
	OpResize
	OpConvert
	OpFilter
	OpAddText
	OpThumbnail
)

var operations = []struct {
	op       Operation
	title    string
	help     string
	shortcut rune
}{
	{OpReduce, "Reduce file size", "Compress images below a size limit", '1'},
	{OpResize, "Resize", "Resize to fixed dimensions or a percentage", '2'},
	{OpConvert, "Convert format", "Re-encode into another format, optionally renaming", '3'},
	{OpFilter, "Apply filter", "Black & white, sepia, blur and more", '4'},
	{OpAddText, "Add text", "Draw a caption or watermark", '5'},
	{OpThumbnail, "Thumbnails", "Create thumbnails or favicons", '6'},
}

func (o Operation) String() string {
	for _, entry := range operations {
		if entry.op == o {
			return entry.title
		}
	}
	return "unknown"
}

const builtinFont = "Built-in"

var (
	resizeModes    = []string{"Fixed size", "Percent"}
	convertTargets = []string{"jpeg", "png", "webp", "bmp", "gif", "tiff"}
	textColors     = []string{"black", "white", "red", "blue", "green"}
	textPositions  = []string{"top-left", "top-right", "center", "bottom-left", "bottom-right"}
)

// parseNumber reads a whole number typed into a form field.
func parseNumber(field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, imageio.InvalidParameterf("%s must be a whole number, got %q", field, value)
	}
	return n, nil
}

func resizeModeFrom(mode, width, height, percent, quality string) (editor.ResizeMode, error) {
	q, err := editor.ParseFilterQuality(quality)
	if err != nil {
		return nil, err
	}
	if mode == resizeModes[1] {
		p, err := parseNumber("Percent", percent)
		if err != nil {
			return nil, err
		}
		if p <= 0 {
			return nil, imageio.InvalidParameterf("percent must be positive, got %d", p)
		}
		return editor.Percent{Percent: p}, nil
	}

	w, err := parseNumber("Width", width)
	if err != nil {
		return nil, err
	}
	h, err := parseNumber("Height", height)
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, imageio.InvalidParameterf("width and height must be positive, got %dx%d", w, h)
	}
	return editor.FixedSize{Width: w, Height: h, Quality: q}, nil
}

func convertOptionsFrom(target, rename string) (editor.ConvertOptions, error) {
	format, err := imageio.ParseFormat(target)
	if err != nil {
		return editor.ConvertOptions{}, imageio.InvalidParameterf("unknown target format %q", target)
	}
	opts := editor.ConvertOptions{Target: format}
	if strings.TrimSpace(rename) != "" {
		p := editor.ParseRenamePattern(rename)
		opts.Rename = &p
	}
	return opts, nil
}

func textOptionsFrom(text, fontName, size, colorName, position string) (editor.TextOptions, error) {
	pct, err := parseNumber("Font size", size)
	if err != nil {
		return editor.TextOptions{}, err
	}
	c, err := editor.ParseTextColor(colorName)
	if err != nil {
		return editor.TextOptions{}, err
	}
	pos, err := editor.ParseTextPosition(position)
	if err != nil {
		return editor.TextOptions{}, err
	}
	if fontName == builtinFont {
		fontName = ""
	}
	return editor.TextOptions{
		Text:        text,
		Font:        fontName,
		SizePercent: pct,
		Color:       c,
		Position:    pos,
	}, nil
}

func thumbnailOptionsFrom(selected map[int]bool, favicon bool) (editor.ThumbnailOptions, error) {
	opts := editor.ThumbnailOptions{Favicon: favicon}
	for _, s := range editor.ThumbnailSizes {
		if selected[s] {
			opts.Sizes = append(opts.Sizes, s)
		}
	}
	if len(opts.Sizes) == 0 {
		return opts, imageio.InvalidParameterf("select at least one thumbnail size")
	}
	return opts, nil
}

func selectedImages(images []string, checked map[string]bool) ([]string, error) {
	var out []string
	for _, name := range images {
		if checked[name] {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, imageio.InvalidParameterf("no images selected")
	}
	return out, nil
}
