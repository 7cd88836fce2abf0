// Package metrics holds the Prometheus collectors of the classification
// service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

type Registry struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ClassificationsTotal   *prometheus.CounterVec
	ClassificationDuration prometheus.Histogram
	ClassificationErrors   *prometheus.CounterVec
	StageEvaluations       *prometheus.CounterVec
	TraceCells             prometheus.Histogram

	ModelReloadsTotal *prometheus.CounterVec
	ModelLoaded       *prometheus.GaugeVec
	ModelStages       prometheus.Gauge
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{registry: reg}
	f := promauto.With(reg)

	r.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onionpop_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	r.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onionpop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	r.ClassificationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onionpop_classifications_total",
			Help: "Circuits classified, by composite verdict",
		},
		[]string{"detected"},
	)
	r.ClassificationDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "onionpop_classification_duration_seconds",
			Help:    "Time to extract features and run the pipeline for one circuit",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)
	r.ClassificationErrors = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onionpop_classification_errors_total",
			Help: "Classifications aborted by an error",
		},
		[]string{"reason"}, // no_features, not_trained, no_model, other
	)
	r.StageEvaluations = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onionpop_stage_evaluations_total",
			Help: "Stage evaluations, by stage and verdict",
		},
		[]string{"stage", "detected"},
	)
	r.TraceCells = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "onionpop_trace_cells",
			Help:    "Number of cells per classified circuit",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	r.ModelReloadsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onionpop_model_reloads_total",
			Help: "Model reload attempts",
		},
		[]string{"result"}, // loaded, unchanged, failed
	)
	r.ModelLoaded = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "onionpop_model_loaded",
			Help: "1 for the model currently served",
		},
		[]string{"model"},
	)
	r.ModelStages = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "onionpop_model_stages",
			Help: "Number of stages in the served pipeline",
		},
	)
	return r
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Registry) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordClassification records one composite decision and the stages it
// evaluated. A stage repeated in the pipeline counts once per evaluation.
func (r *Registry) RecordClassification(detected bool, cells int, stages []domain.StageResult, duration time.Duration) {
	r.ClassificationsTotal.WithLabelValues(strconv.FormatBool(detected)).Inc()
	r.ClassificationDuration.Observe(duration.Seconds())
	r.TraceCells.Observe(float64(cells))
	for _, st := range stages {
		r.StageEvaluations.WithLabelValues(st.Stage, strconv.FormatBool(st.Detected)).Inc()
	}
}

func (r *Registry) RecordClassificationError(reason string) {
	r.ClassificationErrors.WithLabelValues(reason).Inc()
}

func (r *Registry) RecordModelReload(result string) {
	r.ModelReloadsTotal.WithLabelValues(result).Inc()
}

// SetModel marks name as the served model.
func (r *Registry) SetModel(name string, stages int) {
	r.ModelLoaded.Reset()
	r.ModelLoaded.WithLabelValues(name).Set(1)
	r.ModelStages.Set(float64(stages))
}
