package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sentiment"

type Metrics struct {
	Predictions     *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	InferenceTime   prometheus.Histogram
	ArtifactsLoaded prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Predictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Completed predictions by label.",
		}, []string{"label"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_failures_total",
			Help:      "Requests that produced no prediction, by kind.",
		}, []string{"kind"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
		InferenceTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent tokenizing and running the model.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		ArtifactsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifacts_loaded",
			Help:      "1 when the vectorizer and model are loaded, 0 otherwise.",
		}),
	}
}

func (m *Metrics) ObserveInference(start time.Time) {
	if m == nil {
		return
	}
	m.InferenceTime.Observe(time.Since(start).Seconds())
}

func (m *Metrics) Prediction(label string) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(label).Inc()
}

func (m *Metrics) Failure(kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SetArtifactsLoaded(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.ArtifactsLoaded.Set(1)
		return
	}
	m.ArtifactsLoaded.Set(0)
}
