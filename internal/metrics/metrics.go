package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var routeLabels = []string{"service", "method", "route", "code"}

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "interview",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route pattern and status code",
	}, routeLabels)

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "interview",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, routeLabels)

	httpInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "interview",
		Name:      "http_in_flight_requests",
		Help:      "HTTP requests currently being served",
	}, []string{"service"})

	// Only uploads carry meaningful bodies; buckets run from 64 KiB to 1 GiB.
	uploadBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "interview",
		Name:      "upload_size_bytes",
		Help:      "Size of recording upload bodies in bytes",
		Buckets:   prometheus.ExponentialBuckets(64<<10, 4, 8),
	}, []string{"service", "code"})
)

// statusWriter captures the response code.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request metrics. Routes are labelled with the chi route
// pattern so attempt ids and upload tokens never become label values.
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			inFlight := httpInFlight.WithLabelValues(service)
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)

			code := strconv.Itoa(sw.code)
			route := routePattern(r)
			httpRequests.WithLabelValues(service, r.Method, route, code).Inc()
			httpLatency.WithLabelValues(service, r.Method, route, code).Observe(elapsed.Seconds())
			if r.Method == http.MethodPut && r.ContentLength > 0 {
				uploadBytes.WithLabelValues(service, code).Observe(float64(r.ContentLength))
			}
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched"
	}
	return rctx.RoutePattern()
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
