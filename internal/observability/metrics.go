package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_requests_total",
			Help: "Total submission requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "submission_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "submission_in_flight",
		Help: "In-flight HTTP requests",
	})
	FeedsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feeds_processed_total",
			Help: "Feed runs by outcome",
		}, []string{"outcome"},
	)
	FeedErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_errors_total",
			Help: "Errors reported while processing feeds",
		},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, FeedsProcessed, FeedErrors)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
