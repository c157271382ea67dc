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
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight",
		Help: "In-flight HTTP requests",
	})

	Assignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_assignments_total",
			Help: "Assignments produced by the matching engine",
		}, []string{"template"},
	)
	JobsRegistered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_jobs_registered_total",
		Help: "Send jobs registered with the timer facility",
	})
	RegistrationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_job_registration_errors_total",
			Help: "Failed send job registrations by reason",
		}, []string{"reason"},
	)
	Sends = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_sends_total",
		Help: "Simulated sends recorded",
	})
	SendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_send_errors_total",
			Help: "Send job failures by type",
		}, []string{"type"},
	)
	SendsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campaign_sends_in_flight",
		Help: "Send jobs currently executing, cooldown included",
	})
	PassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaign_pass_duration_seconds",
		Help:    "Duration of a full load, match and schedule pass",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		RequestsTotal, Latency, InFlight,
		Assignments, JobsRegistered, RegistrationErrors,
		Sends, SendErrors, SendsInFlight, PassDuration,
	)
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
