package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imagetools-go/internal/imageio"
)

// ErrNoImages is returned when a directory holds no file with a valid extension.
var ErrNoImages = errors.New("no images found")

// List returns the names of the files in dir whose extension is in extensions, sorted by name.
// Sub-directories are not descended into.
func List(dir string, extensions []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, imageio.NewError(imageio.KindPathNotFound, dir, err)
	}
	if !info.IsDir() {
		return nil, imageio.NewError(imageio.KindPathNotFound, dir, fmt.Errorf("not a directory"))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	extSet := ExtensionSet(extensions)

	var images []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if IsImage(entry.Name(), extSet) {
			images = append(images, entry.Name())
		}
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	sort.Strings(images)
	return images, nil
}

// IsImage reports whether name has one of the extensions in extSet (lowercase, with dot).
func IsImage(name string, extSet map[string]struct{}) bool {
	_, ok := extSet[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ExtensionSet builds the lookup used by IsImage.
func ExtensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		set[normalizeExtension(e)] = struct{}{}
	}
	return set
}

// Select narrows available to the wanted names. An empty selection means every image.
func Select(available, wanted []string) ([]string, error) {
	if len(wanted) == 0 {
		return available, nil
	}

	known := make(map[string]struct{}, len(available))
	for _, name := range available {
		known[name] = struct{}{}
	}

	selected := make([]string, 0, len(wanted))
	seen := make(map[string]struct{}, len(wanted))
	for _, name := range wanted {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := known[name]; !ok {
			return nil, imageio.InvalidParameterf("image %q is not in the directory or has an unsupported extension", name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		selected = append(selected, name)
	}
	if len(selected) == 0 {
		return nil, imageio.InvalidParameterf("no images selected")
	}
	return selected, nil
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
