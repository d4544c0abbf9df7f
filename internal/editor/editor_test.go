package editor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"imagetools-go/internal/imageio"
	"imagetools-go/internal/statistics"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writeImage(t *testing.T, dir, name string, img image.Image) {
	t.Helper()
	format, err := imageio.FormatFromPath(name)
	if err != nil {
		t.Fatal(err)
	}
	if err := imageio.Save(filepath.Join(dir, name), img, format, imageio.EncodeOptions{Quality: 100}); err != nil {
		t.Fatal(err)
	}
}

func newTestEditor(t *testing.T) (*Editor, string, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "new_images")
	return NewEditor(out, nil), t.TempDir(), out
}

func openImage(t *testing.T, path string) image.Image {
	t.Helper()
	img, _, err := imageio.Open(path)
	if err != nil {
		t.Fatalf("Open(%s) error = %v", path, err)
	}
	return img
}

func TestParseResizeMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ResizeMode
		wantErr bool
	}{
		{"800x600", FixedSize{Width: 800, Height: 600}, false},
		{" 50% ", Percent{Percent: 50}, false},
		{"0x10", nil, true},
		{"-5%", nil, true},
		{"big", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseResizeMode(tt.in, FilterNormal)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResizeMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, imageio.ErrInvalidParameter) {
				t.Errorf("Expected ErrInvalidParameter, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseResizeMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestResize(t *testing.T) {
	tests := []struct {
		name  string
		mode  ResizeMode
		wantW int
		wantH int
	}{
		{"Fixed normal", FixedSize{Width: 10, Height: 10}, 10, 10},
		{"Fixed high", FixedSize{Width: 7, Height: 3, Quality: FilterHigh}, 7, 3},
		{"Percent", Percent{Percent: 50}, 20, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, src, out := newTestEditor(t)
			writeImage(t, src, "a.png", solidImage(40, 20, color.White))

			results, err := e.Resize(context.Background(), src, []string{"a.png"}, tt.mode)
			if err != nil {
				t.Fatalf("Resize() error = %v", err)
			}
			if !results[0].Success() {
				t.Fatalf("Resize failed: %v", results[0].Error)
			}
			b := openImage(t, filepath.Join(out, "a.png")).Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
		})
	}
}

func TestParseRenamePattern(t *testing.T) {
	tests := []struct {
		in        string
		wantBase  string
		wantStart int
	}{
		{"holiday --INDEX", "holiday", 1},
		{"holiday --INDEX --START 5", "holiday", 5},
		{"--START 12 trip_", "trip_", 12},
		{"plain", "plain", 1},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := ParseRenamePattern(tt.in)
			if p.Base != tt.wantBase || p.Start != tt.wantStart {
				t.Errorf("ParseRenamePattern(%q) = %+v", tt.in, p)
			}
		})
	}
}

func TestConvertRenamesAndSkips(t *testing.T) {
	e, src, out := newTestEditor(t)
	writeImage(t, src, "a.png", solidImage(8, 8, color.White))
	writeImage(t, src, "b.jpg", solidImage(8, 8, color.White))
	writeImage(t, src, "c.png", solidImage(8, 8, color.White))

	rename := ParseRenamePattern("photo --INDEX --START 5")
	results, err := e.Convert(context.Background(), src, []string{"a.png", "b.jpg", "c.png"}, ConvertOptions{
		Target: imageio.JPEG,
		Rename: &rename,
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if !results[1].Skipped || results[1].Error != nil {
		t.Errorf("Expected b.jpg to be skipped, got %+v", results[1])
	}
	for _, name := range []string{"photo5.jpg", "photo7.jpg"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("Expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "photo6.jpg")); !os.IsNotExist(err) {
		t.Errorf("Skipped image must not be written, stat error = %v", err)
	}
}

func TestConvertFlattensTransparencyOntoWhite(t *testing.T) {
	e, src, out := newTestEditor(t)
	writeImage(t, src, "clear.png", solidImage(8, 8, color.NRGBA{}))

	results, err := e.Convert(context.Background(), src, []string{"clear.png"}, ConvertOptions{Target: imageio.JPEG})
	if err != nil || !results[0].Success() {
		t.Fatalf("Convert() error = %v / %v", err, results[0].Error)
	}

	img := openImage(t, filepath.Join(out, "clear.jpg"))
	r, g, b, _ := img.At(4, 4).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Errorf("Expected white background, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestConvertRejectsReadOnlyTarget(t *testing.T) {
	e, src, _ := newTestEditor(t)
	_, err := e.Convert(context.Background(), src, []string{"a.png"}, ConvertOptions{Target: imageio.HEIC})
	if !errors.Is(err, imageio.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}

func TestApplyFilter(t *testing.T) {
	e, src, out := newTestEditor(t)
	writeImage(t, src, "white.png", solidImage(6, 6, color.White))
	writeImage(t, src, "red.png", solidImage(6, 6, color.NRGBA{R: 200, G: 30, B: 10, A: 255}))

	if _, err := e.ApplyFilter(context.Background(), src, []string{"white.png"}, FilterInvert); err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := openImage(t, filepath.Join(out, "white.png")).At(2, 2).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("Inverted white should be black, got %d,%d,%d", r, g, b)
	}

	bw, err := ParseFilter("Black-and-White")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.ApplyFilter(context.Background(), src, []string{"red.png"}, bw); err != nil {
		t.Fatal(err)
	}
	r, g, b, _ = openImage(t, filepath.Join(out, "red.png")).At(2, 2).RGBA()
	if r != g || g != b {
		t.Errorf("Grayscale pixel has distinct channels %d,%d,%d", r, g, b)
	}
}

func TestParseFilterUnknown(t *testing.T) {
	if _, err := ParseFilter("vintage"); !errors.Is(err, imageio.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
	for _, name := range FilterNames() {
		if _, err := ParseFilter(name); err != nil {
			t.Errorf("ParseFilter(%q) error = %v", name, err)
		}
	}
}

func TestBatchIsolatesFailures(t *testing.T) {
	e, src, out := newTestEditor(t)
	stats := statistics.NewStatistics("filter")
	e.WithStatistics(stats)

	if err := os.WriteFile(filepath.Join(src, "broken.png"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	writeImage(t, src, "ok.png", solidImage(4, 4, color.White))

	results, err := e.ApplyFilter(context.Background(), src, []string{"broken.png", "missing.png", "ok.png"}, FilterSepia)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(results[0].Error, imageio.ErrDecode) {
		t.Errorf("Expected decode error, got %v", results[0].Error)
	}
	if !errors.Is(results[1].Error, imageio.ErrPathNotFound) {
		t.Errorf("Expected path-not-found error, got %v", results[1].Error)
	}
	if !results[2].Success() {
		t.Errorf("ok.png failed: %v", results[2].Error)
	}
	if _, err := os.Stat(filepath.Join(out, "ok.png")); err != nil {
		t.Errorf("ok.png not written: %v", err)
	}
	if stats.GetImagesWithErrors() != 2 || stats.ImagesEdited != 1 {
		t.Errorf("Unexpected statistics: errors=%d edited=%d", stats.GetImagesWithErrors(), stats.ImagesEdited)
	}
}

func TestMissingDirectory(t *testing.T) {
	e, _, _ := newTestEditor(t)
	_, err := e.ApplyFilter(context.Background(), filepath.Join(t.TempDir(), "nope"), []string{"a.png"}, FilterBlur)
	if !errors.Is(err, imageio.ErrPathNotFound) {
		t.Errorf("Expected ErrPathNotFound, got %v", err)
	}
}

func TestAddTextTopLeftRespectsMargin(t *testing.T) {
	e, src, out := newTestEditor(t)
	writeImage(t, src, "card.png", solidImage(120, 60, color.White))

	results, err := e.AddText(context.Background(), src, []string{"card.png"}, TextOptions{
		Text:        "Hi",
		SizePercent: 10,
		Color:       color.Black,
		Position:    TopLeft,
	})
	if err != nil || !results[0].Success() {
		t.Fatalf("AddText() error = %v / %v", err, results[0].Error)
	}

	img := openImage(t, filepath.Join(out, "card.png"))
	drawn := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			if r == 0xffff {
				continue
			}
			drawn++
			if x < textMargin-1 || y < textMargin-1 {
				t.Fatalf("Text pixel at (%d,%d) inside the margin", x, y)
			}
		}
	}
	if drawn == 0 {
		t.Error("No text was drawn")
	}
}

func TestAddTextValidation(t *testing.T) {
	e, src, _ := newTestEditor(t)
	writeImage(t, src, "a.png", solidImage(4, 4, color.White))

	if _, err := e.AddText(context.Background(), src, []string{"a.png"}, TextOptions{Text: " ", SizePercent: 5}); !errors.Is(err, imageio.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for empty text, got %v", err)
	}
	e.WithFontsDirectory(t.TempDir())
	_, err := e.AddText(context.Background(), src, []string{"a.png"}, TextOptions{Text: "x", Font: "nope.ttf", SizePercent: 5})
	if !errors.Is(err, imageio.ErrPathNotFound) {
		t.Errorf("Expected ErrPathNotFound for a missing font, got %v", err)
	}
}

func TestParseTextPositionAndColor(t *testing.T) {
	for in, want := range map[string]TextPosition{
		"top-left":     TopLeft,
		"Top Right":    TopRight,
		"center":       Center,
		"bottom_left":  BottomLeft,
		"BOTTOM-RIGHT": BottomRight,
	} {
		got, err := ParseTextPosition(in)
		if err != nil || got != want {
			t.Errorf("ParseTextPosition(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTextColor("purple"); err == nil {
		t.Error("Expected error for unknown color")
	}
}

func TestThumbnailKeepsAspectRatio(t *testing.T) {
	e, src, out := newTestEditor(t)
	writeImage(t, src, "wide.png", solidImage(200, 100, color.White))

	results, err := e.Thumbnail(context.Background(), src, []string{"wide.png"}, ThumbnailOptions{Sizes: []int{32, 16}})
	if err != nil || !results[0].Success() {
		t.Fatalf("Thumbnail() error = %v / %v", err, results[0].Error)
	}
	if len(results[0].OutputPaths) != 2 {
		t.Fatalf("Expected 2 outputs, got %v", results[0].OutputPaths)
	}

	for name, want := range map[string]image.Point{
		"wide_16px.png": {16, 8},
		"wide_32px.png": {32, 16},
	} {
		b := openImage(t, filepath.Join(out, name)).Bounds()
		if b.Dx() != want.X || b.Dy() != want.Y {
			t.Errorf("%s: expected %v, got %dx%d", name, want, b.Dx(), b.Dy())
		}
	}
}

func TestThumbnailFavicon(t *testing.T) {
	e, src, out := newTestEditor(t)
	writeImage(t, src, "logo.png", solidImage(64, 32, color.White))

	if _, err := e.Thumbnail(context.Background(), src, []string{"logo.png"}, ThumbnailOptions{Sizes: []int{16, 32}, Favicon: true}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(out, "logo.ico"))
	if err != nil {
		t.Fatalf("Favicon not written: %v", err)
	}
	r := bytes.NewReader(data)
	var dir iconDir
	if err := binary.Read(r, binary.LittleEndian, &dir); err != nil {
		t.Fatal(err)
	}
	if dir.Type != 1 || dir.Count != 2 {
		t.Fatalf("Unexpected icon header %+v", dir)
	}
	entries := make([]iconDirEntry, dir.Count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		t.Fatal(err)
	}
	if entries[0].Width != 16 || entries[1].Width != 32 || entries[1].Height != 32 {
		t.Errorf("Unexpected entries %+v", entries)
	}

	first := data[entries[0].Offset : entries[0].Offset+entries[0].BytesInRes]
	img, err := png.Decode(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("Entry is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("Expected a 16x16 icon, got %v", img.Bounds())
	}
}

func TestThumbnailRejectsUnsupportedSize(t *testing.T) {
	e, src, _ := newTestEditor(t)
	_, err := e.Thumbnail(context.Background(), src, []string{"a.png"}, ThumbnailOptions{Sizes: []int{20}})
	if !errors.Is(err, imageio.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
}
