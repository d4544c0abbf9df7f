package imageio

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Format identifies an image codec.
type Format int

const (
	FormatUnknown Format = iota
	JPEG
	PNG
	GIF
	BMP
	TIFF
	WEBP
	HEIC
)

var formatsByName = map[string]Format{
	"jpg":  JPEG,
	"jpeg": JPEG,
	"png":  PNG,
	"gif":  GIF,
	"bmp":  BMP,
	"tif":  TIFF,
	"tiff": TIFF,
	"webp": WEBP,
	"heic": HEIC,
	"heif": HEIC,
}

// ParseFormat resolves a format name or extension ("JPEG", ".jpg", "tif").
// Aliases are normalized, so "jpg" yields JPEG.
func ParseFormat(name string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if f, ok := formatsByName[key]; ok {
		return f, nil
	}
	return FormatUnknown, InvalidParameterf("unsupported image format %q", name)
}

// FormatFromPath resolves the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return FormatUnknown, InvalidParameterf("file %s has no extension", filepath.Base(path))
	}
	return ParseFormat(ext)
}

// String returns the normalized lowercase name, which is also the extension used for new files.
func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case PNG:
		return "png"
	case GIF:
		return "gif"
	case BMP:
		return "bmp"
	case TIFF:
		return "tiff"
	case WEBP:
		return "webp"
	case HEIC:
		return "heic"
	default:
		return "unknown"
	}
}

// Extension returns the extension, with leading dot, for files written in this format.
func (f Format) Extension() string {
	return "." + f.String()
}

// CanEncode reports whether images can be written in this format.
func (f Format) CanEncode() bool {
	switch f {
	case JPEG, PNG, GIF, BMP, TIFF, WEBP:
		return true
	default:
		return false
	}
}

// HasAlpha reports whether the encoder keeps transparency.
func (f Format) HasAlpha() bool {
	switch f {
	case PNG, GIF, TIFF, WEBP:
		return true
	default:
		return false
	}
}

func (f Format) imaging() (imaging.Format, error) {
	switch f {
	case JPEG:
		return imaging.JPEG, nil
	case PNG:
		return imaging.PNG, nil
	case GIF:
		return imaging.GIF, nil
	case BMP:
		return imaging.BMP, nil
	case TIFF:
		return imaging.TIFF, nil
	default:
		return 0, fmt.Errorf("format %s is not handled by imaging", f)
	}
}
