package imageio

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WriteFile writes data to path through a uniquely named temporary file and a rename.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return NewError(KindEncode, path, fmt.Errorf("create output dir: %w", err))
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return NewError(KindEncode, path, fmt.Errorf("write tmp file: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return NewError(KindEncode, path, fmt.Errorf("rename: %w", err))
	}
	return nil
}

// Save encodes img in the given format and writes it to path.
func Save(path string, img image.Image, format Format, opts EncodeOptions) error {
	data, err := EncodeBytes(img, format, opts)
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Path == "" {
			e.Path = path
		}
		return err
	}
	return WriteFile(path, data)
}
