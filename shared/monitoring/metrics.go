package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	remoteQueries  *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
	reportsBuilt   *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec
	digestsSent    prometheus.Counter
	tokenRefreshes *prometheus.CounterVec
)

// Init registers metrics with the default registry. Safe to call repeatedly.
func Init() {
	once.Do(func() {
		remoteQueries = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_remote_queries_total",
			Help: "Remote API calls by service and outcome",
		}, []string{"service", "outcome"})
		remoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_remote_query_duration_seconds",
			Help:    "Remote API call duration seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"})
		reportsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_reports_total",
			Help: "Reports assembled by report id and outcome",
		}, []string{"report", "outcome"})
		reportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_report_duration_seconds",
			Help:    "Report assembly duration seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"report"})
		digestsSent = promauto.NewCounter(prometheus.CounterOpts{
			Name: "analytics_digests_sent_total",
			Help: "Scheduled digests delivered",
		})
		tokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_token_refreshes_total",
			Help: "OAuth token refresh attempts by outcome",
		}, []string{"outcome"})
	})
}

// ObserveQuery records one remote call.
func ObserveQuery(service, outcome string, d time.Duration) {
	Init()
	remoteQueries.WithLabelValues(service, outcome).Inc()
	remoteDuration.WithLabelValues(service).Observe(d.Seconds())
}

// ObserveReport records one report assembly.
func ObserveReport(report, outcome string, d time.Duration) {
	Init()
	reportsBuilt.WithLabelValues(report, outcome).Inc()
	reportDuration.WithLabelValues(report).Observe(d.Seconds())
}

func RecordDigestSent() {
	Init()
	digestsSent.Inc()
}

func RecordTokenRefresh(success bool) {
	Init()
	if success {
		tokenRefreshes.WithLabelValues("success").Inc()
	} else {
		tokenRefreshes.WithLabelValues("failure").Inc()
	}
}
