package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatchedRoute = "unmatched"

var (
	// httpRequests counts requests by the engine outcome a handler reported,
	// so a 429 from a full queue and one from a saturated payload type stay
	// distinguishable.
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aos_http_requests_total",
			Help: "HTTP requests by route, status code and engine outcome.",
		},
		[]string{"method", "route", "code", "outcome"},
	)

	// httpRequestDuration leaves out SSE streams, which stay open for the
	// lifetime of an operation.
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aos_http_request_duration_seconds",
			Help:    "Latency of non-streaming HTTP requests in seconds.",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 5, 30},
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(httpRequests, httpRequestDuration)
}

type outcomeKey struct{}

// requestOutcome is filled in by handlers and read back by metricsMiddleware.
type requestOutcome struct {
	value string
}

// setOutcome records the outcome label for the current request.
func setOutcome(r *http.Request, outcome string) {
	if o, ok := r.Context().Value(outcomeKey{}).(*requestOutcome); ok {
		o.value = outcome
	}
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		outcome := &requestOutcome{}

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), outcomeKey{}, outcome)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status), outcomeLabel(outcome.value, status)).Inc()
		if !strings.HasSuffix(route, "/stream") {
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}
	})
}

// outcomeLabel falls back to the status class when the handler reported
// nothing more specific.
func outcomeLabel(recorded string, status int) string {
	switch {
	case recorded != "":
		return recorded
	case status < http.StatusBadRequest:
		return outcomeOK
	case status < http.StatusInternalServerError:
		return outcomeClientError
	default:
		return outcomeInternal
	}
}

// routePattern is the matched chi pattern, which keeps label cardinality
// bounded by the route table rather than by operation ids.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatchedRoute
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
