// Package metrics exposes Prometheus collectors for the assessment flow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomePassed = "passed"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	AssessmentsGenerated prometheus.Counter
	AssessmentsFailed    *prometheus.CounterVec
	GenerationDuration   prometheus.Histogram
	GenerationTokens     prometheus.Counter
	Grades               *prometheus.CounterVec
	CertificatesIssued   prometheus.Counter
	TranscriptFetches    *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AssessmentsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiu_assessments_generated_total",
			Help: "Total number of assessments generated",
		}),
		AssessmentsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiu_assessments_failed_total",
			Help: "Total number of failed assessment generations",
		}, []string{"kind"}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kiu_generation_duration_seconds",
			Help:    "Assessment generation duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		GenerationTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiu_generation_tokens_total",
			Help: "Total tokens spent on assessment generation",
		}),
		Grades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiu_grades_total",
			Help: "Total number of graded assessments",
		}, []string{"outcome"}),
		CertificatesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kiu_certificates_issued_total",
			Help: "Total number of certificates issued",
		}),
		TranscriptFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kiu_transcript_fetches_total",
			Help: "Total number of transcript fetches",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AssessmentsGenerated,
		m.AssessmentsFailed,
		m.GenerationDuration,
		m.GenerationTokens,
		m.Grades,
		m.CertificatesIssued,
		m.TranscriptFetches,
	)
	return m
}

// ObserveGeneration records one successful generation.
func (m *Metrics) ObserveGeneration(d time.Duration, tokens int) {
	m.AssessmentsGenerated.Inc()
	m.GenerationDuration.Observe(d.Seconds())
	if tokens > 0 {
		m.GenerationTokens.Add(float64(tokens))
	}
}

// ObserveGrade records a grading outcome.
func (m *Metrics) ObserveGrade(eligible bool) {
	outcome := OutcomeFailed
	if eligible {
		outcome = OutcomePassed
	}
	m.Grades.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
