package imageio

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// noiseImage returns an image that compresses poorly, so quality changes show up in the encoded size.
func noiseImage(width, height int) *image.NRGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestRescalePercent(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		percent       int
		wantW, wantH  int
	}{
		{"Half", 200, 100, 50, 100, 50},
		{"Truncates", 100, 100, 33, 33, 33},
		{"Schedule step", 2400, 1600, 75, 1800, 1200},
		{"Upscale", 10, 10, 150, 15, 15},
		{"Clamped to 1px", 3, 40, 10, 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, tt.width, tt.height))
			out, err := RescalePercent(img, tt.percent)
			if err != nil {
				t.Fatalf("RescalePercent() error = %v", err)
			}
			if got := out.Bounds(); got.Dx() != tt.wantW || got.Dy() != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, got.Dx(), got.Dy())
			}
		})
	}
}

func TestRescalePercentRejectsNonPositive(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for _, p := range []int{0, -5} {
		_, err := RescalePercent(img, p)
		if !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("percent %d: expected ErrInvalidParameter, got %v", p, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jpg", JPEG, false},
		{".JPG", JPEG, false},
		{"JPEG", JPEG, false},
		{"png", PNG, false},
		{"tif", TIFF, false},
		{"webp", WEBP, false},
		{"heic", HEIC, false},
		{"psd", FormatUnknown, true},
		{"", FormatUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatFromPathNormalizesJPG(t *testing.T) {
	f, err := FormatFromPath("/tmp/photo.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if f.String() != "jpeg" {
		t.Errorf("Expected jpeg, got %s", f)
	}
	if HEIC.CanEncode() {
		t.Error("HEIC must be decode-only")
	}
}

func TestEncodeQualityAffectsSize(t *testing.T) {
	img := noiseImage(128, 128)

	high, err := EncodeBytes(img, JPEG, EncodeOptions{Quality: 100, Optimize: true})
	if err != nil {
		t.Fatal(err)
	}
	low, err := EncodeBytes(img, JPEG, EncodeOptions{Quality: 40, Optimize: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(high) {
		t.Errorf("Expected quality 40 (%d bytes) to be smaller than quality 100 (%d bytes)", len(low), len(high))
	}
}

func TestEncodeHEICFails(t *testing.T) {
	_, err := EncodeBytes(noiseImage(4, 4), HEIC, EncodeOptions{Quality: 80})
	if !errors.Is(err, ErrEncode) {
		t.Errorf("Expected ErrEncode, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.png")
	if err := Save(good, noiseImage(20, 10), PNG, EncodeOptions{Quality: 100}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	img, format, err := Open(good)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if format != PNG || img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("Unexpected decode result: %v %v", format, img.Bounds())
	}

	_, _, err = Open(filepath.Join(dir, "missing.jpg"))
	if !errors.Is(err, ErrPathNotFound) {
		t.Errorf("Expected ErrPathNotFound, got %v", err)
	}

	corrupt := filepath.Join(dir, "corrupt.jpg")
	if err := os.WriteFile(corrupt, []byte("definitely not a jpeg"), 0644); err != nil {
		t.Fatal(err)
	}
	_, _, err = Open(corrupt)
	if KindOf(err) != KindDecode {
		t.Errorf("Expected DecodeError, got %v", err)
	}
}

func TestDecodeConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.jpg")
	src := image.NewUniform(color.White)
	img := image.NewRGBA(image.Rect(0, 0, 31, 17))
	for y := 0; y < 17; y++ {
		for x := 0; x < 31; x++ {
			img.Set(x, y, src.C)
		}
	}
	if err := Save(path, img, JPEG, EncodeOptions{Quality: 90}); err != nil {
		t.Fatal(err)
	}

	cfg, format, err := DecodeConfig(path)
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if format != JPEG || cfg.Width != 31 || cfg.Height != 17 {
		t.Errorf("Unexpected config %v %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.bin")
	if err := WriteFile(path, []byte("abc")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.bin" {
		t.Errorf("Expected only out.bin, got %v", entries)
	}
	kb, err := FileSizeKB(path)
	if err != nil {
		t.Fatal(err)
	}
	if kb != 3.0/1024 {
		t.Errorf("Unexpected size %v", kb)
	}
}
