package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	CheckoutTotal    *prometheus.CounterVec
	ReconcileTotal   *prometheus.CounterVec
	StockReservation *prometheus.CounterVec
}

func NewServerMetrics() *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopora",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopora",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopora",
		Name:      "checkout_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	reconcile := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopora",
		Name:      "payment_reconcile_total",
		Help:      "Payment reconciliations by channel and outcome.",
	}, []string{"channel", "outcome"})
	reservation := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopora",
		Name:      "stock_reservation_total",
		Help:      "Stock reservation attempts by outcome.",
	}, []string{"outcome"})

	prometheus.MustRegister(requests, latency, checkout, reconcile, reservation)
	return &ServerMetrics{
		Requests:         requests,
		LatencyMS:        latency,
		CheckoutTotal:    checkout,
		ReconcileTotal:   reconcile,
		StockReservation: reservation,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency per route pattern.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		handler := r.URL.Path
		m.Requests.WithLabelValues(handler, strconv.Itoa(rec.status)).Inc()
		m.LatencyMS.WithLabelValues(handler).
			Observe(float64(time.Since(start).Milliseconds()))
	})
}
