package editor

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imagetools-go/internal/imageio"
	"imagetools-go/internal/logger"
	"imagetools-go/internal/metrics"
	"imagetools-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

// saveQuality is the encoder quality used when an edit writes a lossy format.
const saveQuality = 95

// Result describes what an edit did to one image.
type Result struct {
	Image       string
	InputPath   string
	OutputPaths []string
	Format      imageio.Format
	Skipped     bool
	Message     string
	Error       error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Success reports whether the image was edited or deliberately skipped.
func (r Result) Success() bool {
	return r.Error == nil
}

func (r Result) outcome() string {
	switch {
	case r.Error != nil:
		return "failed"
	case r.Skipped:
		return "skipped"
	default:
		return "edited"
	}
}

// Editor applies whole-image edits to a batch of images and writes the results
// into an output directory.
type Editor struct {
	outputDir string
	fontsDir  string
	log       *logrus.Logger
	stats     *statistics.Statistics
	recorder  *metrics.Recorder
}

// NewEditor creates a new Editor writing into outputDir.
func NewEditor(outputDir string, log *logrus.Logger) *Editor {
	if log == nil {
		log = logger.Discard()
	}
	return &Editor{outputDir: outputDir, fontsDir: "fonts", log: log}
}

// WithStatistics makes the editor count its results into s.
func (e *Editor) WithStatistics(s *statistics.Statistics) *Editor {
	e.stats = s
	return e
}

// WithRecorder makes the editor export metrics through r.
func (e *Editor) WithRecorder(r *metrics.Recorder) *Editor {
	e.recorder = r
	return e
}

// WithFontsDirectory sets where AddText looks for font files.
func (e *Editor) WithFontsDirectory(dir string) *Editor {
	e.fontsDir = dir
	return e
}

// OutputDirectory returns the directory edits are written to.
func (e *Editor) OutputDirectory() string {
	return e.outputDir
}

type editFunc func(res *Result, entry *logrus.Entry) error

// run applies fn to every image in order. A failing image is recorded in its
// Result and the batch continues.
func (e *Editor) run(ctx context.Context, operation, dir string, images []string, fn editFunc) ([]Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, imageio.NewError(imageio.KindPathNotFound, dir, err)
	}

	logger.WithOperation(e.log, operation).WithField("images", len(images)).Info("Starting batch")

	results := make([]Result, 0, len(images))
	for _, name := range images {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := Result{
			Image:     name,
			InputPath: filepath.Join(dir, name),
			StartedAt: time.Now(),
		}
		entry := logger.WithFileOperation(e.log, name, operation)

		if err := fn(&res, entry); err != nil {
			res.Error = err
			res.Message = fmt.Sprintf("Error processing image %s: %v", name, err)
			entry.Error(res.Message)
		} else if res.Message != "" {
			entry.Info(res.Message)
		}
		res.FinishedAt = time.Now()

		e.record(operation, res)
		results = append(results, res)
	}
	return results, nil
}

func (e *Editor) record(operation string, res Result) {
	if e.stats != nil {
		e.stats.IncrementImagesProcessed()
		switch {
		case res.Error != nil:
			e.stats.AddError(res.InputPath, operation, res.Error.Error())
		case res.Skipped:
			e.stats.IncrementSkipped()
		default:
			e.stats.IncrementEdited()
			e.stats.IncrementFormat(res.Format.String())
		}
	}
	e.recorder.ObserveImage(operation, res.outcome(), res.FinishedAt.Sub(res.StartedAt))
}

// load decodes the input image of res and records its format.
func (e *Editor) load(res *Result) (image.Image, error) {
	img, format, err := imageio.Open(res.InputPath)
	if err != nil {
		return nil, err
	}
	res.Format = format
	return img, nil
}

// save encodes img under name in the output directory. Formats that can only be
// read are written as JPEG with the extension changed to match.
func (e *Editor) save(res *Result, name string, img image.Image, format imageio.Format) error {
	if !format.CanEncode() {
		format = imageio.JPEG
		name = strings.TrimSuffix(name, filepath.Ext(name)) + format.Extension()
		img = flatten(img)
	}
	path := filepath.Join(e.outputDir, name)
	if err := imageio.Save(path, img, format, imageio.EncodeOptions{Quality: saveQuality, Optimize: true}); err != nil {
		return err
	}
	res.OutputPaths = append(res.OutputPaths, path)
	return nil
}

func baseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
