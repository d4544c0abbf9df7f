package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"io/fs"
	"os"

	"github.com/adrium/goheif"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// MaxQuality is the quality at which every encode starts.
const MaxQuality = 100

// EncodeOptions controls lossy encoders.
type EncodeOptions struct {
	// Quality in [1, 100]; used by JPEG and WEBP.
	Quality int
	// Optimize trades encode time for smaller output (PNG compression level).
	Optimize bool
}

// ReadFile reads an image file, classifying a missing file as PathNotFound.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewError(KindPathNotFound, path, err)
		}
		return nil, NewError(KindDecode, path, err)
	}
	return data, nil
}

// Open reads and decodes the image at path, returning its format as well.
func Open(path string) (image.Image, Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, FormatUnknown, NewError(KindDecode, path, err)
	}
	data, err := ReadFile(path)
	if err != nil {
		return nil, FormatUnknown, err
	}
	img, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, FormatUnknown, NewError(KindDecode, path, err)
	}
	return img, format, nil
}

// Decode decodes r as an image of the given format. EXIF orientation is applied.
func Decode(r io.Reader, format Format) (image.Image, error) {
	switch format {
	case WEBP:
		return webp.Decode(r)
	case HEIC:
		return goheif.Decode(r)
	case FormatUnknown:
		return nil, fmt.Errorf("unknown image format")
	default:
		return imaging.Decode(r, imaging.AutoOrientation(true))
	}
}

// DecodeConfig returns the dimensions of the image at path without decoding pixels where possible.
func DecodeConfig(path string) (image.Config, Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return image.Config{}, FormatUnknown, NewError(KindDecode, path, err)
	}
	data, err := ReadFile(path)
	if err != nil {
		return image.Config{}, FormatUnknown, err
	}

	var cfg image.Config
	switch format {
	case WEBP:
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
	case HEIC:
		var img image.Image
		img, err = goheif.Decode(bytes.NewReader(data))
		if err == nil {
			b := img.Bounds()
			cfg = image.Config{ColorModel: img.ColorModel(), Width: b.Dx(), Height: b.Dy()}
		}
	default:
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return image.Config{}, FormatUnknown, NewError(KindDecode, path, err)
	}
	return cfg, format, nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format Format, opts EncodeOptions) error {
	quality := clampQuality(opts.Quality)

	switch format {
	case WEBP:
		if err := webp.Encode(w, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return NewError(KindEncode, "", err)
		}
		return nil
	case HEIC, FormatUnknown:
		return NewError(KindEncode, "", fmt.Errorf("format %s cannot be encoded", format))
	}

	imgFormat, err := format.imaging()
	if err != nil {
		return NewError(KindEncode, "", err)
	}

	options := []imaging.EncodeOption{imaging.JPEGQuality(quality)}
	if opts.Optimize {
		options = append(options, imaging.PNGCompressionLevel(png.BestCompression))
	}
	if err := imaging.Encode(w, img, imgFormat, options...); err != nil {
		return NewError(KindEncode, "", err)
	}
	return nil
}

// EncodeBytes encodes img into memory. The slice length is the exact encoded size.
func EncodeBytes(img image.Image, format Format, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SizeKB converts a byte count to kilobytes (1 KB = 1024 bytes).
func SizeKB(n int64) float64 {
	return float64(n) / 1024
}

// FileSizeKB returns the on-disk size of path in kilobytes.
func FileSizeKB(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, NewError(KindPathNotFound, path, err)
		}
		return 0, err
	}
	return SizeKB(info.Size()), nil
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}
