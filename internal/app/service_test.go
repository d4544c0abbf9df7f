package app

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imagetools-go/internal/catalog"
	"imagetools-go/internal/compressor"
	"imagetools-go/internal/config"
	"imagetools-go/internal/editor"
	"imagetools-go/internal/imageio"

	logtest "github.com/sirupsen/logrus/hooks/test"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDirectory = filepath.Join(t.TempDir(), "new_images")
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "imagetools.prom")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	src := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	for _, name := range []string{"a.png", "b.png"} {
		if err := imageio.Save(filepath.Join(src, name), img, imageio.PNG, imageio.EncodeOptions{Quality: 100}); err != nil {
			t.Fatal(err)
		}
	}
	return New(cfg, nil), src
}

func TestImages(t *testing.T) {
	s, src := newTestService(t)

	all, err := s.Images(src, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("Images() = %v, %v", all, err)
	}
	if _, err := s.Images(src, []string{"c.png"}); !errors.Is(err, imageio.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter, got %v", err)
	}
	if _, err := s.Images(t.TempDir(), nil); !errors.Is(err, catalog.ErrNoImages) {
		t.Errorf("Expected ErrNoImages, got %v", err)
	}
}

func TestReduceWritesStatisticsAndMetrics(t *testing.T) {
	s, src := newTestService(t)
	limit, err := s.Config().ParseLimit("512KB")
	if err != nil {
		t.Fatal(err)
	}

	stats, err := s.Reduce(context.Background(), src, []string{"a.png", "b.png"}, compressor.Options{Limit: limit})
	if err != nil {
		t.Fatalf("Reduce() error = %v", err)
	}
	if stats.TotalImagesFound != 2 || stats.ImagesWithinBudget != 2 {
		t.Errorf("Unexpected statistics:\n%s", stats.GetSummary())
	}

	data, err := os.ReadFile(s.Config().Metrics.Textfile)
	if err != nil {
		t.Fatalf("Metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(data), `imagetools_images_total{operation="reduce",outcome="within_budget"} 2`) {
		t.Errorf("Metrics missing reduce counter:\n%s", data)
	}
}

func TestEditOperationsShareRecorder(t *testing.T) {
	s, src := newTestService(t)
	ctx := context.Background()
	images := []string{"a.png", "b.png"}

	if _, err := s.Resize(ctx, src, images, editor.Percent{Percent: 50}); err != nil {
		t.Fatal(err)
	}
	stats, err := s.Filter(ctx, src, images, editor.FilterInvert)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ImagesEdited != 2 {
		t.Errorf("Expected 2 edited images, got %d", stats.ImagesEdited)
	}

	data, err := os.ReadFile(s.Config().Metrics.Textfile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`operation="resize"`, `operation="filter"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Metrics missing %s", want)
		}
	}
	if b := mustDecodeBounds(t, filepath.Join(s.Config().OutputDirectory, "a.png")); b.Dx() != 10 {
		t.Errorf("Filter output should come from the source image, got width %d", b.Dx())
	}
}

func TestInspectSkipsUnreadable(t *testing.T) {
	s, src := newTestService(t)
	if err := os.WriteFile(filepath.Join(src, "bad.png"), []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	infos := s.Inspect(src, []string{"a.png", "bad.png"})
	if len(infos) != 1 || infos[0].Name != "a.png" || infos[0].Width != 10 {
		t.Errorf("Unexpected infos %+v", infos)
	}
}

func TestThumbnailFavicon(t *testing.T) {
	s, src := newTestService(t)
	if _, err := s.Thumbnail(context.Background(), src, []string{"a.png"}, editor.ThumbnailOptions{Sizes: []int{16}, Favicon: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(s.Config().OutputDirectory, "a.ico")); err != nil {
		t.Errorf("Favicon not written: %v", err)
	}
}

func mustDecodeBounds(t *testing.T, path string) image.Rectangle {
	t.Helper()
	img, _, err := imageio.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return img.Bounds()
}

func TestBatchFinishedLogsSummaryFields(t *testing.T) {
	s, src := newTestService(t)
	log, hook := logtest.NewNullLogger()
	s = New(s.Config(), log)

	if _, err := s.Filter(context.Background(), src, []string{"a.png"}, editor.FilterInvert); err != nil {
		t.Fatal(err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "Batch finished" {
		t.Fatalf("Expected a final \"Batch finished\" entry, got %+v", entry)
	}
	if entry.Data["operation"] != "filter" {
		t.Errorf("operation = %v, want filter", entry.Data["operation"])
	}
	if entry.Data["processed"] != int64(1) {
		t.Errorf("processed = %v, want 1", entry.Data["processed"])
	}
}
