package app

import (
	"context"
	"fmt"
	"path/filepath"

	"imagetools-go/internal/catalog"
	"imagetools-go/internal/compressor"
	"imagetools-go/internal/config"
	"imagetools-go/internal/editor"
	"imagetools-go/internal/logger"
	"imagetools-go/internal/metrics"
	"imagetools-go/internal/statistics"
	"imagetools-go/internal/watcher"

	"github.com/sirupsen/logrus"
)

// Service wires configuration, logging and metrics into the batch operations
// shared by the command line and the interactive UI.
type Service struct {
	cfg      *config.Config
	log      *logrus.Logger
	recorder *metrics.Recorder
}

// New returns a Service. A nil logger discards all output.
func New(cfg *config.Config, log *logrus.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{cfg: cfg, log: log, recorder: metrics.NewRecorder()}
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Logger returns the service logger.
func (s *Service) Logger() *logrus.Logger {
	return s.log
}

// Recorder returns the metrics recorder shared by all operations.
func (s *Service) Recorder() *metrics.Recorder {
	return s.recorder
}

// Images lists the valid images of dir and narrows them to selected.
// An empty selection means every image.
func (s *Service) Images(dir string, selected []string) ([]string, error) {
	all, err := catalog.List(dir, s.cfg.ValidExtensions)
	if err != nil {
		return nil, err
	}
	return catalog.Select(all, selected)
}

// Reduce runs the size-constrained compressor over images.
func (s *Service) Reduce(ctx context.Context, dir string, images []string, opts compressor.Options) (*statistics.Statistics, error) {
	stats := s.begin("reduce", images)
	_, err := s.newCompressor(stats).Compress(ctx, compressor.Request{
		Directory: dir,
		Images:    images,
		Options:   opts,
	})
	s.finish(stats)
	return stats, err
}

// Resize resizes images by a fixed size or a percentage.
func (s *Service) Resize(ctx context.Context, dir string, images []string, mode editor.ResizeMode) (*statistics.Statistics, error) {
	stats := s.begin("resize", images)
	_, err := s.newEditor(stats).Resize(ctx, dir, images, mode)
	s.finish(stats)
	return stats, err
}

// Convert changes the format of images.
func (s *Service) Convert(ctx context.Context, dir string, images []string, opts editor.ConvertOptions) (*statistics.Statistics, error) {
	stats := s.begin("convert", images)
	_, err := s.newEditor(stats).Convert(ctx, dir, images, opts)
	s.finish(stats)
	return stats, err
}

// Filter applies a filter to images.
func (s *Service) Filter(ctx context.Context, dir string, images []string, f editor.Filter) (*statistics.Statistics, error) {
	stats := s.begin("filter", images)
	_, err := s.newEditor(stats).ApplyFilter(ctx, dir, images, f)
	s.finish(stats)
	return stats, err
}

// AddText draws text onto images.
func (s *Service) AddText(ctx context.Context, dir string, images []string, opts editor.TextOptions) (*statistics.Statistics, error) {
	stats := s.begin("add-text", images)
	_, err := s.newEditor(stats).AddText(ctx, dir, images, opts)
	s.finish(stats)
	return stats, err
}

// Thumbnail creates thumbnails or favicons of images.
func (s *Service) Thumbnail(ctx context.Context, dir string, images []string, opts editor.ThumbnailOptions) (*statistics.Statistics, error) {
	stats := s.begin("thumbnail", images)
	_, err := s.newEditor(stats).Thumbnail(ctx, dir, images, opts)
	s.finish(stats)
	return stats, err
}

// Fonts lists the font files available to AddText.
func (s *Service) Fonts() ([]string, error) {
	return editor.AvailableFonts(s.cfg.FontsDirectory)
}

// Inspect reads size, dimensions and EXIF data of images. Unreadable images are
// logged and left out.
func (s *Service) Inspect(dir string, images []string) []catalog.ImageInfo {
	inspector := catalog.NewInspector(s.log)
	infos := make([]catalog.ImageInfo, 0, len(images))
	for _, name := range images {
		info, err := inspector.Inspect(filepath.Join(dir, name))
		if err != nil {
			logger.WithFileOperation(s.log, name, "info").Errorf("Error reading image %s: %v", name, err)
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// Watch reduces every image that appears in dir until ctx is done.
func (s *Service) Watch(ctx context.Context, dir string, opts compressor.Options) (*statistics.Statistics, error) {
	stats := statistics.NewStatistics("watch")
	c := s.newCompressor(stats)

	w, err := watcher.New(dir, s.cfg.ValidExtensions, func(ctx context.Context, name string) {
		stats.AddImagesFound(1)
		if _, err := c.Compress(ctx, compressor.Request{Directory: dir, Images: []string{name}, Options: opts}); err != nil {
			logger.WithFileOperation(s.log, name, "watch").Errorf("Error processing image %s: %v", name, err)
		}
	}, s.log)
	if err != nil {
		return nil, err
	}

	err = w.Run(ctx)
	s.finish(stats)
	return stats, err
}

func (s *Service) newCompressor(stats *statistics.Statistics) *compressor.DefaultCompressor {
	return compressor.NewDefaultCompressor(s.cfg.CompressionPolicy(), s.log).
		WithWorkers(s.cfg.Performance.WorkerThreads).
		WithStatistics(stats).
		WithRecorder(s.recorder)
}

func (s *Service) newEditor(stats *statistics.Statistics) *editor.Editor {
	return editor.NewEditor(s.cfg.OutputDirectory, s.log).
		WithFontsDirectory(s.cfg.FontsDirectory).
		WithStatistics(stats).
		WithRecorder(s.recorder)
}

func (s *Service) begin(operation string, images []string) *statistics.Statistics {
	stats := statistics.NewStatistics(operation)
	stats.AddImagesFound(len(images))
	return stats
}

// finish closes the statistics and exports metrics when a textfile is configured.
func (s *Service) finish(stats *statistics.Statistics) {
	stats.Finalize()
	logger.WithFields(s.log, logrus.Fields{
		"operation": stats.Operation,
		"processed": stats.TotalImagesProcessed,
		"errors":    stats.GetImagesWithErrors(),
		"duration":  stats.GetDuration(),
	}).Info("Batch finished")

	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := s.recorder.WriteTextfile(path); err != nil {
			s.log.Warnf("Failed to write metrics to %s: %v", path, err)
		}
	}
}

// Describe renders a one-line description of a finished batch.
func Describe(stats *statistics.Statistics) string {
	return fmt.Sprintf("%s: %d processed, %d errors in %v",
		stats.Operation, stats.TotalImagesProcessed, stats.GetImagesWithErrors(), stats.GetDuration())
}
