package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

// PipelineMetrics records analysis sessions. It implements ports.PipelineObserver.
type PipelineMetrics struct {
	service string

	sessionsTotal      *prometheus.CounterVec
	sessionDuration    *prometheus.HistogramVec
	stageDuration      *prometheus.HistogramVec
	documentsTotal     *prometheus.CounterVec
	fallbackPatchTotal *prometheus.CounterVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	sessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "sessions_total",
			Help:      "Finished analysis sessions by type and terminal state.",
		},
		[]string{"service", "analysis_type", "state"},
	)
	sessionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "session_duration_seconds",
			Help:      "End-to-end analysis session duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "analysis_type"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "stage"},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "documents_classified_total",
			Help:      "Classified documents by type and whether the path override decided the type.",
		},
		[]string{"service", "doc_type", "forced"},
	)
	fallbackPatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "fallbacks_total",
			Help:      "Synthesized values substituted for missing inputs, by kind.",
		},
		[]string{"service", "kind"},
	)

	registerer.MustRegister(sessionsTotal, sessionDuration, stageDuration, documentsTotal, fallbackPatchTotal)

	return &PipelineMetrics{
		service:            service,
		sessionsTotal:      sessionsTotal,
		sessionDuration:    sessionDuration,
		stageDuration:      stageDuration,
		documentsTotal:     documentsTotal,
		fallbackPatchTotal: fallbackPatchTotal,
	}
}

func (m *PipelineMetrics) SessionFinished(analysisType domain.AnalysisType, state domain.SessionState, seconds float64) {
	m.sessionsTotal.WithLabelValues(m.service, string(analysisType), string(state)).Inc()
	m.sessionDuration.WithLabelValues(m.service, string(analysisType)).Observe(seconds)
}

func (m *PipelineMetrics) StageFinished(stage domain.SessionState, seconds float64) {
	m.stageDuration.WithLabelValues(m.service, string(stage)).Observe(seconds)
}

func (m *PipelineMetrics) DocumentClassified(docType domain.DocumentType, forced bool) {
	label := "false"
	if forced {
		label = "true"
	}
	m.documentsTotal.WithLabelValues(m.service, string(docType), label).Inc()
}

func (m *PipelineMetrics) FallbackApplied(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.fallbackPatchTotal.WithLabelValues(m.service, kind).Inc()
}
