package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "canvas",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"service", "method", "path", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "canvas",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "method", "path", "status"})

	httpInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "canvas",
		Name:      "http_in_flight_requests",
		Help:      "Current number of in-flight HTTP requests",
	}, []string{"service"})

	// ActiveRooms tracks rooms resident in memory.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "canvas",
		Name:      "active_rooms",
		Help:      "Rooms currently resident in memory",
	})

	// ActiveParticipants tracks live connections across all rooms.
	ActiveParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "canvas",
		Name:      "active_participants",
		Help:      "Participants currently connected across all rooms",
	})

	ElementUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canvas",
		Name:      "element_updates_total",
		Help:      "Element snapshot updates applied",
	})

	CursorUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canvas",
		Name:      "cursor_updates_total",
		Help:      "Cursor updates broadcast",
	})

	PersistWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canvas",
		Name:      "persist_writes_total",
		Help:      "Successful durable-store writes",
	})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "canvas",
		Name:      "persist_failures_total",
		Help:      "Failed durable-store writes",
	})
)

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is required so the websocket upgrade still works through the
// middleware.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("canvas metrics: underlying ResponseWriter does not support hijacking")
}

// Middleware records request metrics with Prometheus labels.
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			httpInFlight.WithLabelValues(service).Inc()
			defer httpInFlight.WithLabelValues(service).Dec()

			next.ServeHTTP(rec, r)

			labels := prometheus.Labels{
				"service": service,
				"method":  r.Method,
				"path":    r.URL.Path,
				"status":  strconv.Itoa(rec.status),
			}
			httpRequests.With(labels).Inc()
			httpLatency.With(labels).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
