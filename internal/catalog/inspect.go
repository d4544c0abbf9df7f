package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imagetools-go/internal/imageio"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// ImageInfo describes one image file for the info report.
type ImageInfo struct {
	Name      string
	Path      string
	Format    imageio.Format
	Width     int
	Height    int
	SizeBytes int64
	Taken     *time.Time
	Camera    string
}

// SizeKB returns the file size in kilobytes.
func (i ImageInfo) SizeKB() float64 {
	return imageio.SizeKB(i.SizeBytes)
}

// Inspector reads dimensions and EXIF metadata of image files.
type Inspector struct {
	logger *logrus.Logger
}

// NewInspector returns a new Inspector.
func NewInspector(logger *logrus.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// Inspect returns dimensions, size and, when present, EXIF capture date and camera model.
func (in *Inspector) Inspect(path string) (ImageInfo, error) {
	info := ImageInfo{Name: filepath.Base(path), Path: path}

	stat, err := os.Stat(path)
	if err != nil {
		return info, imageio.NewError(imageio.KindPathNotFound, path, err)
	}
	info.SizeBytes = stat.Size()

	cfg, format, err := imageio.DecodeConfig(path)
	if err != nil {
		return info, err
	}
	info.Format = format
	info.Width, info.Height = cfg.Width, cfg.Height

	if taken, camera, err := in.readEXIF(path); err == nil {
		info.Taken = taken
		info.Camera = camera
	} else {
		in.logger.Debugf("No EXIF data for %s: %v", path, err)
	}

	return info, nil
}

// readEXIF extracts the capture date and camera model using the rwcarlsen/goexif library.
func (in *Inspector) readEXIF(path string) (*time.Time, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode EXIF: %w", err)
	}

	var taken *time.Time
	if tm, err := x.DateTime(); err == nil {
		taken = &tm
	}

	var camera string
	if field, err := x.Get(exif.Model); err == nil {
		if model, err := field.StringVal(); err == nil {
			camera = strings.TrimSpace(model)
		}
	}

	return taken, camera, nil
}

// String renders the info as one report line.
func (i ImageInfo) String() string {
	line := fmt.Sprintf("%-30s %-5s %5dx%-5d %10.2f KB", i.Name, i.Format, i.Width, i.Height, i.SizeKB())
	if i.Taken != nil {
		line += "  taken " + i.Taken.Format("2006-01-02 15:04:05")
	}
	if i.Camera != "" {
		line += "  camera " + i.Camera
	}
	return line
}
