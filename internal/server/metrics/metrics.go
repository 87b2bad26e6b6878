// Package metrics records request counters and operation timings.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives counters and timings. Implementations must not block.
type Recorder interface {
	Count(name string)
	Timing(name string, d time.Duration)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Count(string)                 {}
func (Nop) Timing(string, time.Duration) {}

// PrometheusRecorder exposes every recorded name as a label value of one
// counter and one histogram, both tagged with the instance id.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	counts   *prometheus.CounterVec
	timings  *prometheus.HistogramVec
}

func NewPrometheusRecorder(namespace, instanceID string) *PrometheusRecorder {
	constLabels := prometheus.Labels{"instance_id": instanceID}

	counts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Name:        "events_total",
		Help:        "Number of recorded events by name.",
		ConstLabels: constLabels,
	}, []string{"name"})

	timings := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Name:        "operation_duration_seconds",
		Help:        "Duration of timed operations by name.",
		ConstLabels: constLabels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"name"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(counts, timings)
	reg.MustRegister(collectors.NewGoCollector())

	return &PrometheusRecorder{registry: reg, counts: counts, timings: timings}
}

func (p *PrometheusRecorder) Count(name string) {
	p.counts.WithLabelValues(name).Inc()
}

func (p *PrometheusRecorder) Timing(name string, d time.Duration) {
	p.timings.WithLabelValues(name).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// APIName builds the metric name of a route, e.g. api.get.v1_user_self.
func APIName(method, route string) string {
	path := strings.Trim(route, "/")
	path = strings.ReplaceAll(path, "/", "_")
	if path == "" {
		path = "root"
	}
	return "api." + strings.ToLower(method) + "." + path
}

// Since records the time elapsed from start under name.
func Since(r Recorder, name string, start time.Time) {
	r.Timing(name, time.Since(start))
}
