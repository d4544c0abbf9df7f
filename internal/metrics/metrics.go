package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects per-image metrics on a private registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	ImagesTotal  *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	Bytes        *prometheus.HistogramVec
	Iterations   prometheus.Histogram
	FinalQuality prometheus.Histogram
}

// NewRecorder registers the imagetools metrics on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		ImagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "imagetools_images_total",
				Help: "Total number of processed images",
			},
			[]string{"operation", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imagetools_image_duration_seconds",
				Help:    "Time spent on a single image",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		Bytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "imagetools_image_bytes",
				Help:    "Image input/output bytes",
				Buckets: []float64{1024, 10240, 102400, 524288, 1048576, 2097152, 5242880, 10485760},
			},
			[]string{"direction"}, // input, output
		),
		Iterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imagetools_reduce_iterations",
				Help:    "Encode passes needed by the size-constrained compressor",
				Buckets: prometheus.LinearBuckets(0, 2, 12),
			},
		),
		FinalQuality: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "imagetools_reduce_final_quality",
				Help:    "Encoder quality the compressor stopped at",
				Buckets: prometheus.LinearBuckets(5, 10, 10),
			},
		),
	}
}

// ObserveImage records the outcome and duration of one image.
func (r *Recorder) ObserveImage(operation, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.ImagesTotal.WithLabelValues(operation, outcome).Inc()
	r.Duration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveBytes records input and output sizes of one image.
func (r *Recorder) ObserveBytes(in, out int64) {
	if r == nil {
		return
	}
	r.Bytes.WithLabelValues("input").Observe(float64(in))
	r.Bytes.WithLabelValues("output").Observe(float64(out))
}

// ObserveReduction records how the compression loop ended.
func (r *Recorder) ObserveReduction(iterations, quality int) {
	if r == nil {
		return
	}
	r.Iterations.Observe(float64(iterations))
	r.FinalQuality.Observe(float64(quality))
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format, for node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
