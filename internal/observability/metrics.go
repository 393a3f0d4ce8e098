package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/bokslut/internal/shared"
)

// Metrics collects Prometheus metrics for the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	postings        *prometheus.CounterVec
	invoicePostings *prometheus.CounterVec
	transitions     *prometheus.CounterVec
}

// NewMetrics initialises the registry with HTTP and domain collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bokslut_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bokslut_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bokslut_ledger_postings_total",
		Help: "Journal entry posting attempts by source and result.",
	}, []string{"source", "result"})
	invoicePostings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bokslut_invoice_postings_total",
		Help: "Invoice lifecycle postings by event and outcome.",
	}, []string{"event", "outcome"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bokslut_closing_transitions_total",
		Help: "Annual closing transition attempts by target status and result.",
	}, []string{"target", "result"})
	registry.MustRegister(requests, duration, postings, invoicePostings, transitions)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		postings:        postings,
		invoicePostings: invoicePostings,
		transitions:     transitions,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ObservePosting counts a ledger posting attempt.
func (m *Metrics) ObservePosting(source string, err error) {
	if m == nil {
		return
	}
	m.postings.WithLabelValues(source, result(err)).Inc()
}

// ObserveInvoicePosting counts an invoice lifecycle call.
func (m *Metrics) ObserveInvoicePosting(event, outcome string) {
	if m == nil {
		return
	}
	m.invoicePostings.WithLabelValues(event, outcome).Inc()
}

// ObserveClosingTransition counts a closing transition attempt.
func (m *Metrics) ObserveClosingTransition(target string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(target, result(err)).Inc()
}

// result folds an error into a bounded label value.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	case errors.Is(err, shared.ErrPreconditionNotMet):
		return "precondition"
	}
	return "error"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
