// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodeposit_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autodeposit_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodeposit_notifications_total",
		Help: "Notifications seen by the ingestion path, labeled by result (stored, duplicate, parked)",
	}, []string{"result"})

	MatchOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodeposit_match_outcomes_total",
		Help: "Matcher outcomes per payment",
	}, []string{"outcome"})

	WatcherTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autodeposit_watcher_ticks_total",
		Help: "Watcher ticks, labeled by result (ok, failed, skipped, standby)",
	}, []string{"result"})

	WatcherTickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "autodeposit_watcher_tick_duration_seconds",
		Help:    "Duration of one watcher tick",
		Buckets: prometheus.DefBuckets,
	})

	WatcherAlarm = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autodeposit_watcher_alarm",
		Help: "1 while consecutive failed ticks are at or above the alarm threshold",
	})

	WatcherConsecutiveFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "autodeposit_watcher_consecutive_failures",
		Help: "Failed watcher ticks since the last successful one",
	})

	RequestsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "autodeposit_requests_expired_total",
		Help: "Deposit requests expired by the expiry job",
	})
)

// SetAlarm flips the watcher alarm gauge.
func SetAlarm(on bool) {
	if on {
		WatcherAlarm.Set(1)
		return
	}
	WatcherAlarm.Set(0)
}
