package compressor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"imagetools-go/internal/imageio"
)

// SizeLimit is a positive target size in kilobytes, parsed once from strings such as "512KB".
type SizeLimit struct {
	kb int
}

// NewSizeLimit returns a limit of kb kilobytes.
func NewSizeLimit(kb int) (SizeLimit, error) {
	if kb <= 0 {
		return SizeLimit{}, imageio.InvalidParameterf("size limit must be positive, got %d", kb)
	}
	return SizeLimit{kb: kb}, nil
}

// ParseSizeLimit parses "512KB", "512kb" or "512".
func ParseSizeLimit(s string) (SizeLimit, error) {
	raw := strings.TrimSpace(s)
	num := strings.TrimSuffix(strings.TrimSuffix(raw, "KB"), "kb")
	kb, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return SizeLimit{}, imageio.InvalidParameterf("invalid size limit %q (expected e.g. 512KB)", s)
	}
	return NewSizeLimit(kb)
}

// KB returns the limit in kilobytes.
func (l SizeLimit) KB() int { return l.kb }

// IsZero reports whether the limit was never set.
func (l SizeLimit) IsZero() bool { return l.kb == 0 }

// Exceeded reports whether sizeKB is over the limit. A size equal to the limit fits.
func (l SizeLimit) Exceeded(sizeKB float64) bool {
	return sizeKB > float64(l.kb)
}

func (l SizeLimit) String() string {
	return strconv.Itoa(l.kb) + "KB"
}

// Options are the caller's choices for one reduce run.
type Options struct {
	Limit        SizeLimit
	AllowResize  bool
	ForceToLimit bool
}

// Policy holds the fixed parameters of the reduction loop.
type Policy struct {
	OutputDirectory  string
	StartQuality     int
	QualityStep      int
	MinQuality       int
	ForcedMinQuality int
	ResizeThreshold  int
	ResizeSchedule   []int
	PreShrinkPercent int
	PreShrinkPixels  int
}

// DefaultPolicy returns the standard reduction parameters.
func DefaultPolicy() Policy {
	return Policy{
		OutputDirectory:  "new_images",
		StartQuality:     imageio.MaxQuality,
		QualityStep:      5,
		MinQuality:       40,
		ForcedMinQuality: 5,
		ResizeThreshold:  40,
		ResizeSchedule:   []int{75, 50, 25, 10},
		PreShrinkPercent: 90,
		// Pillow's decompression-bomb threshold, compared against each side.
		PreShrinkPixels: 89478485,
	}
}

// MinQualityFor returns the quality floor for the given options.
func (p Policy) MinQualityFor(opts Options) int {
	if opts.ForceToLimit {
		return p.ForcedMinQuality
	}
	return p.MinQuality
}

// Validate checks the policy for values the loop cannot work with.
func (p Policy) Validate() error {
	if p.OutputDirectory == "" {
		return fmt.Errorf("output directory is required")
	}
	if p.StartQuality < 1 || p.StartQuality > imageio.MaxQuality {
		return fmt.Errorf("start quality must be in [1, 100], got %d", p.StartQuality)
	}
	if p.QualityStep <= 0 {
		return fmt.Errorf("quality step must be positive, got %d", p.QualityStep)
	}
	for _, q := range []int{p.MinQuality, p.ForcedMinQuality} {
		if q < 1 || q > p.StartQuality {
			return fmt.Errorf("quality floor %d outside [1, %d]", q, p.StartQuality)
		}
	}
	prev := 100
	for _, pct := range p.ResizeSchedule {
		if pct <= 0 || pct >= prev {
			return fmt.Errorf("resize schedule must be strictly decreasing percentages below 100, got %v", p.ResizeSchedule)
		}
		prev = pct
	}
	if p.PreShrinkPercent <= 0 || p.PreShrinkPercent >= 100 {
		return fmt.Errorf("pre-shrink percent must be in (0, 100), got %d", p.PreShrinkPercent)
	}
	if p.PreShrinkPixels <= 0 {
		return fmt.Errorf("pre-shrink pixel threshold must be positive, got %d", p.PreShrinkPixels)
	}
	return nil
}

// Request names the images to reduce.
type Request struct {
	Directory string
	Images    []string
	Options   Options
}

// Outcome describes how an image left the compressor.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeWithinBudget
	OutcomeCompressed
	OutcomeTargetNotReached
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWithinBudget:
		return "within_budget"
	case OutcomeCompressed:
		return "compressed"
	case OutcomeTargetNotReached:
		return "target_not_reached"
	default:
		return "failed"
	}
}

// Result describes the result of reducing a single image.
type Result struct {
	Image       string
	InputPath   string
	OutputPath  string
	Format      imageio.Format
	Outcome     Outcome
	OriginalKB  float64
	FinalKB     float64
	Quality     int
	Scale       int
	Width       int
	Height      int
	FinalWidth  int
	FinalHeight int
	PreShrunk   bool
	Iterations  int
	Message     string
	Error       error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Success reports whether an output file was written.
func (r Result) Success() bool {
	return r.Outcome != OutcomeFailed
}

// Compressor defines the interface for size-constrained image compression.
type Compressor interface {
	// Compress reduces every requested image and returns one result per image, in request order.
	// Per-image failures are reported in the results; the error is for failures of the whole batch.
	Compress(ctx context.Context, req Request) ([]Result, error)
}
