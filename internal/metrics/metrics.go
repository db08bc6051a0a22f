// Package metrics exposes Prometheus collectors for HTTP traffic and the lead pipeline.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"renolead_backend/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "renolead"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Lead pipeline metrics
	LeadsCreated       *prometheus.CounterVec
	LeadOverallScore   prometheus.Histogram
	LeadsByPriority    *prometheus.CounterVec
	AssignmentAttempts *prometheus.CounterVec
	StatusTransitions  *prometheus.CounterVec
	ConversionValue    prometheus.Histogram
	FeedbackRatings    prometheus.Histogram
}

// New registers every collector on a fresh registry, plus Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		LeadsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "leads_created_total",
				Help:      "Leads captured from rendering sessions",
			},
			[]string{"room_type", "wants_quote"},
		),
		LeadOverallScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lead_overall_score",
			Help:      "Overall score of each persisted scoring run",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		LeadsByPriority: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_scorings_total",
				Help:      "Scoring runs by resulting priority",
			},
			[]string{"priority"},
		),
		AssignmentAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_assignment_attempts_total",
				Help:      "Per-contractor assignment attempts",
			},
			[]string{"method", "result"}, // result: success, failed
		),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lead_status_transitions_total",
				Help:      "Lead status transitions",
			},
			[]string{"from", "to", "role"},
		),
		ConversionValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lead_conversion_value",
			Help:      "Reported project value of converted leads",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 10),
		}),
		FeedbackRatings: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feedback_rating",
			Help:      "Submitted satisfaction ratings",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one finished request. path is the route pattern, not the raw URL.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RegisterHandlers subscribes the collectors to domain events.
func (m *Metrics) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.LeadCreated); ok {
			m.LeadsCreated.WithLabelValues(ev.RoomType, strconv.FormatBool(ev.WantsQuote)).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.LeadScored{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.LeadScored); ok {
			m.LeadOverallScore.Observe(float64(ev.Overall))
			m.LeadsByPriority.WithLabelValues(ev.Priority).Inc()
		}
		return nil
	}))

	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.LeadAssigned); ok {
			m.AssignmentAttempts.WithLabelValues(ev.Method, "success").Add(float64(len(ev.SucceededContractors)))
			m.AssignmentAttempts.WithLabelValues(ev.Method, "failed").Add(float64(len(ev.FailedContractors)))
		}
		return nil
	}))

	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.LeadStatusChanged); ok {
			m.StatusTransitions.WithLabelValues(ev.OldStatus, ev.NewStatus, ev.ActorRole).Inc()
			if ev.ConversionValue != nil {
				m.ConversionValue.Observe(*ev.ConversionValue)
			}
		}
		return nil
	}))

	bus.Subscribe(events.FeedbackSubmitted{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if ev, ok := e.(events.FeedbackSubmitted); ok {
			m.FeedbackRatings.Observe(float64(ev.Rating))
		}
		return nil
	}))
}
