package compressor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"imagetools-go/internal/imageio"
	"imagetools-go/internal/logger"
	"imagetools-go/internal/metrics"
	"imagetools-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

const operation = "reduce"

// DefaultCompressor is the default implementation of the Compressor interface.
type DefaultCompressor struct {
	policy   Policy
	log      *logrus.Logger
	workers  int
	stats    *statistics.Statistics
	recorder *metrics.Recorder
}

// NewDefaultCompressor creates a new DefaultCompressor that processes images one at a time.
func NewDefaultCompressor(policy Policy, log *logrus.Logger) *DefaultCompressor {
	if log == nil {
		log = logger.Discard()
	}
	return &DefaultCompressor{
		policy:  policy,
		log:     log,
		workers: 1,
	}
}

// WithWorkers sets how many images are processed concurrently.
func (c *DefaultCompressor) WithWorkers(n int) *DefaultCompressor {
	c.workers = max(n, 1)
	return c
}

// WithStatistics makes the compressor count its results into s.
func (c *DefaultCompressor) WithStatistics(s *statistics.Statistics) *DefaultCompressor {
	c.stats = s
	return c
}

// WithRecorder makes the compressor export metrics through r.
func (c *DefaultCompressor) WithRecorder(r *metrics.Recorder) *DefaultCompressor {
	c.recorder = r
	return c
}

// Policy returns the loop parameters in use.
func (c *DefaultCompressor) Policy() Policy {
	return c.policy
}

// Compress reduces the requested images according to req.Options.
func (c *DefaultCompressor) Compress(ctx context.Context, req Request) ([]Result, error) {
	if err := c.policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compression policy: %w", err)
	}
	if req.Options.Limit.IsZero() {
		return nil, imageio.InvalidParameterf("a size limit is required")
	}
	info, err := os.Stat(req.Directory)
	if err != nil || !info.IsDir() {
		return nil, imageio.NewError(imageio.KindPathNotFound, req.Directory, err)
	}
	if len(req.Images) == 0 {
		return nil, nil
	}

	c.log.WithFields(logrus.Fields{
		"images":       len(req.Images),
		"limit":        req.Options.Limit.String(),
		"allow_resize": req.Options.AllowResize,
		"force":        req.Options.ForceToLimit,
	}).Info("Starting size reduction")

	if c.workers <= 1 || len(req.Images) == 1 {
		results := make([]Result, 0, len(req.Images))
		for _, name := range req.Images {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results = append(results, c.compressOne(ctx, req.Directory, name, req.Options))
		}
		return results, nil
	}

	return c.compressParallel(ctx, req)
}

// compressParallel fans images out to a worker pool; each image is still reduced sequentially.
func (c *DefaultCompressor) compressParallel(ctx context.Context, req Request) ([]Result, error) {
	type job struct {
		index int
		name  string
	}
	type result struct {
		index int
		res   Result
	}

	numWorkers := min(c.workers, len(req.Images))
	jobs := make(chan job, len(req.Images))
	results := make(chan result, len(req.Images))

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- result{index: j.index, res: c.compressOne(ctx, req.Directory, j.name, req.Options)}
			}
		}()
	}

	for i, name := range req.Images {
		jobs <- job{index: i, name: name}
	}
	close(jobs)

	wg.Wait()
	close(results)

	resArr := make([]Result, len(req.Images))
	done := make([]bool, len(req.Images))
	for r := range results {
		resArr[r.index] = r.res
		done[r.index] = true
	}
	if err := ctx.Err(); err != nil {
		completed := make([]Result, 0, len(resArr))
		for i, ok := range done {
			if ok {
				completed = append(completed, resArr[i])
			}
		}
		return completed, err
	}
	return resArr, nil
}

// compressOne runs the full procedure for a single image and never panics the batch.
func (c *DefaultCompressor) compressOne(ctx context.Context, dir, name string, opts Options) Result {
	res := Result{
		Image:      name,
		InputPath:  filepath.Join(dir, name),
		OutputPath: filepath.Join(c.policy.OutputDirectory, name),
		StartedAt:  time.Now(),
	}
	entry := logger.WithFileOperation(c.log, name, operation)

	err := c.reduce(ctx, &res, opts, entry)
	res.FinishedAt = time.Now()
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err
		res.Message = fmt.Sprintf("Error processing image %s: %v", name, err)
		entry.Error(res.Message)
	} else {
		c.report(&res, opts, entry)
	}

	c.record(res)
	return res
}

func (c *DefaultCompressor) reduce(ctx context.Context, res *Result, opts Options, entry *logrus.Entry) error {
	format, err := imageio.FormatFromPath(res.Image)
	if err != nil {
		return imageio.NewError(imageio.KindDecode, res.InputPath, err)
	}
	res.Format = format
	if !format.CanEncode() {
		return imageio.NewError(imageio.KindEncode, res.InputPath, fmt.Errorf("%s images can be read but not written; convert them first", format))
	}

	original, err := imageio.ReadFile(res.InputPath)
	if err != nil {
		return err
	}
	img, err := imageio.Decode(bytes.NewReader(original), format)
	if err != nil {
		return imageio.NewError(imageio.KindDecode, res.InputPath, err)
	}

	bounds := img.Bounds()
	res.Width, res.Height = bounds.Dx(), bounds.Dy()

	job := newJob(c.policy)
	pending := original

	if opts.AllowResize && (res.Width >= c.policy.PreShrinkPixels || res.Height >= c.policy.PreShrinkPixels) {
		img, err = imageio.RescalePercent(img, c.policy.PreShrinkPercent)
		if err != nil {
			return err
		}
		pending, err = imageio.EncodeBytes(img, format, imageio.EncodeOptions{Quality: job.Quality, Optimize: true})
		if err != nil {
			return err
		}
		res.PreShrunk = true
		entry.Debugf("Pre-shrunk oversized image to %d%%", c.policy.PreShrinkPercent)
	}

	job.SizeKB = imageio.SizeKB(int64(len(original)))
	res.OriginalKB = job.SizeKB

	if !opts.Limit.Exceeded(job.SizeKB) {
		job.WithinBudget = true
	} else {
		var out []byte
		out, img, err = c.loop(ctx, job, img, format, opts, entry)
		if err != nil {
			return err
		}
		if out != nil {
			pending = out
		}
	}

	if err := imageio.WriteFile(res.OutputPath, pending); err != nil {
		return err
	}

	bounds = img.Bounds()
	res.FinalWidth, res.FinalHeight = bounds.Dx(), bounds.Dy()
	res.FinalKB = imageio.SizeKB(int64(len(pending)))
	res.Quality = job.Quality
	res.Scale = job.Scale
	res.Iterations = job.Iterations

	switch {
	case job.WithinBudget:
		res.Outcome = OutcomeWithinBudget
	case opts.Limit.Exceeded(job.SizeKB):
		res.Outcome = OutcomeTargetNotReached
	default:
		res.Outcome = OutcomeCompressed
	}
	return nil
}

// loop lowers quality and, once quality is at or below the resize threshold, steps down the
// resize schedule until the encoded size fits or nothing more may be reduced.
// Without ForceToLimit only one step is taken after quality reaches the floor.
// It returns the last encoding (nil if nothing was encoded) and the image it came from.
func (c *DefaultCompressor) loop(ctx context.Context, job *Job, img image.Image, format imageio.Format, opts Options, entry *logrus.Entry) ([]byte, image.Image, error) {
	floor := c.policy.MinQualityFor(opts)
	var out []byte

	for opts.Limit.Exceeded(job.SizeKB) {
		if err := ctx.Err(); err != nil {
			return nil, img, err
		}

		atFloor := job.Quality <= floor
		canStep := opts.AllowResize && job.CanResize() && job.Quality <= c.policy.ResizeThreshold
		if atFloor && !opts.ForceToLimit && job.FloorSteps > 0 {
			canStep = false
		}
		if atFloor && !canStep {
			break
		}

		if canStep {
			if atFloor {
				job.FloorSteps++
			}
			pct, _ := job.NextScale()
			scaled, err := imageio.RescalePercent(img, pct)
			if err != nil {
				return nil, img, err
			}
			img = scaled
		}

		job.LowerQuality(c.policy.QualityStep, floor)

		data, err := imageio.EncodeBytes(img, format, imageio.EncodeOptions{Quality: job.Quality, Optimize: true})
		if err != nil {
			return nil, img, err
		}
		out = data
		job.SizeKB = imageio.SizeKB(int64(len(data)))
		job.Iterations++

		entry.WithFields(logrus.Fields{
			"quality": job.Quality,
			"scale":   job.Scale,
			"size_kb": int(job.SizeKB),
		}).Debug("Encoded reduction step")
	}

	return out, img, nil
}

func (c *DefaultCompressor) report(res *Result, opts Options, entry *logrus.Entry) {
	switch res.Outcome {
	case OutcomeWithinBudget:
		res.Message = fmt.Sprintf("Image %s already had a size below the specified KB limit. (Actual size: %.2f KB)", res.Image, res.OriginalKB)
		entry.Info(res.Message)
	case OutcomeCompressed:
		res.Message = fmt.Sprintf("Image %s now has a file size of %d KB.", res.Image, int(res.FinalKB))
		entry.Info(res.Message)
	case OutcomeTargetNotReached:
		res.Message = fmt.Sprintf("Image %s could not reach the specified maximum size of %s, it has been reduced to a weight of %d KB.",
			res.Image, opts.Limit, int(res.FinalKB))
		entry.Warn(res.Message)
	}
}

func (c *DefaultCompressor) record(res Result) {
	if c.stats != nil {
		c.stats.IncrementImagesProcessed()
		switch res.Outcome {
		case OutcomeWithinBudget:
			c.stats.IncrementWithinBudget()
		case OutcomeCompressed:
			c.stats.IncrementCompressed()
		case OutcomeTargetNotReached:
			c.stats.IncrementNotReached()
		default:
			c.stats.AddError(res.InputPath, operation, fmt.Sprint(res.Error))
		}
		if res.Success() {
			c.stats.IncrementFormat(res.Format.String())
			c.stats.AddBytes(int64(res.OriginalKB*1024), int64(res.FinalKB*1024))
		}
	}

	c.recorder.ObserveImage(operation, res.Outcome.String(), res.FinishedAt.Sub(res.StartedAt))
	if res.Success() {
		c.recorder.ObserveBytes(int64(res.OriginalKB*1024), int64(res.FinalKB*1024))
		if res.Outcome != OutcomeWithinBudget {
			c.recorder.ObserveReduction(res.Iterations, res.Quality)
		}
	}
}
