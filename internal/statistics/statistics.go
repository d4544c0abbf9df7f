package statistics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics contains all statistics for one batch run.
type Statistics struct {
	Operation string

	TotalImagesFound     int64
	TotalImagesProcessed int64
	ImagesCompressed     int64
	ImagesWithinBudget   int64
	ImagesNotReached     int64
	ImagesEdited         int64
	ImagesSkipped        int64
	ImagesWithErrors     int64

	BytesIn  int64
	BytesOut int64

	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
	ImagesPerSecond float64

	Errors []StatError

	FormatStats map[string]int64

	mutex sync.RWMutex
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string
	Operation string
	Error     string
	Timestamp time.Time
}

// NewStatistics returns a new Statistics instance for the named operation.
func NewStatistics(operation string) *Statistics {
	return &Statistics{
		Operation:   operation,
		StartTime:   time.Now(),
		FormatStats: make(map[string]int64),
		Errors:      make([]StatError, 0),
	}
}

// AddImagesFound increases the count of discovered images.
func (s *Statistics) AddImagesFound(n int) {
	atomic.AddInt64(&s.TotalImagesFound, int64(n))
}

// IncrementImagesProcessed increases the count of processed images by 1.
func (s *Statistics) IncrementImagesProcessed() {
	atomic.AddInt64(&s.TotalImagesProcessed, 1)
}

// IncrementCompressed increases the count of images brought under the size limit by 1.
func (s *Statistics) IncrementCompressed() {
	atomic.AddInt64(&s.ImagesCompressed, 1)
}

// IncrementWithinBudget increases the count of images that were already small enough by 1.
func (s *Statistics) IncrementWithinBudget() {
	atomic.AddInt64(&s.ImagesWithinBudget, 1)
}

// IncrementNotReached increases the count of images that stayed above the size limit by 1.
func (s *Statistics) IncrementNotReached() {
	atomic.AddInt64(&s.ImagesNotReached, 1)
}

// IncrementEdited increases the count of images written by an edit operation by 1.
func (s *Statistics) IncrementEdited() {
	atomic.AddInt64(&s.ImagesEdited, 1)
}

// IncrementSkipped increases the count of skipped images by 1.
func (s *Statistics) IncrementSkipped() {
	atomic.AddInt64(&s.ImagesSkipped, 1)
}

// IncrementFormat increases the count for a specific image format by 1.
func (s *Statistics) IncrementFormat(format string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.FormatStats[format]++
}

// AddBytes records the input and output size of one image.
func (s *Statistics) AddBytes(in, out int64) {
	atomic.AddInt64(&s.BytesIn, in)
	atomic.AddInt64(&s.BytesOut, out)
}

// AddError records an error that occurred during processing.
func (s *Statistics) AddError(filePath, operation, errorMsg string) {
	atomic.AddInt64(&s.ImagesWithErrors, 1)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// Finalize calculates duration and throughput.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	processed := atomic.LoadInt64(&s.TotalImagesProcessed)
	if s.Duration.Seconds() > 0 {
		s.ImagesPerSecond = float64(processed) / s.Duration.Seconds()
	}
}

// SavedPercent returns how much smaller the output is than the input, in percent.
func (s *Statistics) SavedPercent() float64 {
	in := atomic.LoadInt64(&s.BytesIn)
	out := atomic.LoadInt64(&s.BytesOut)
	if in == 0 {
		return 0
	}
	return float64(in-out) * 100 / float64(in)
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	s.mutex.RLock()
	duration := s.Duration
	perSecond := s.ImagesPerSecond
	s.mutex.RUnlock()

	return fmt.Sprintf(`ImageTools %s Summary:

Images:
		Total Found: %d
		Total Processed: %d
		Compressed: %d
		Already Within Limit: %d
		Limit Not Reached: %d
		Edited: %d
		Skipped: %d
		Errors: %d

Size:
		Input: %s
		Output: %s
		Saved: %.1f%%

Performance:
		Duration: %v
		Images/Second: %.2f`,
		s.Operation,
		atomic.LoadInt64(&s.TotalImagesFound),
		atomic.LoadInt64(&s.TotalImagesProcessed),
		atomic.LoadInt64(&s.ImagesCompressed),
		atomic.LoadInt64(&s.ImagesWithinBudget),
		atomic.LoadInt64(&s.ImagesNotReached),
		atomic.LoadInt64(&s.ImagesEdited),
		atomic.LoadInt64(&s.ImagesSkipped),
		atomic.LoadInt64(&s.ImagesWithErrors),
		FormatBytes(atomic.LoadInt64(&s.BytesIn)),
		FormatBytes(atomic.LoadInt64(&s.BytesOut)),
		s.SavedPercent(),
		duration,
		perSecond)
}

// GetFormatBreakdown returns a formatted breakdown of image formats processed.
func (s *Statistics) GetFormatBreakdown() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.FormatStats) == 0 {
		return "No format statistics available"
	}

	formats := make([]string, 0, len(s.FormatStats))
	for f := range s.FormatStats {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	var b strings.Builder
	b.WriteString("Format Breakdown:\n")
	for _, f := range formats {
		fmt.Fprintf(&b, "  %s: %d\n", f, s.FormatStats[f])
	}
	return b.String()
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}

// GetImagesWithErrors returns the number of images that failed.
func (s *Statistics) GetImagesWithErrors() int64 {
	return atomic.LoadInt64(&s.ImagesWithErrors)
}

// GetDuration returns the total duration of the operation.
func (s *Statistics) GetDuration() time.Duration {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Duration
}

// FormatBytes returns a human-readable string for a byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
