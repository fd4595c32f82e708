// Package metrics exposes Prometheus collectors for the crawler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NelliaS/junior.guru/internal/club"
)

var (
	channelsTotal prometheus.Counter
	messagesTotal prometheus.Counter
	usersTotal    prometheus.Counter
	pinsTotal     prometheus.Counter
	crawlsTotal   *prometheus.CounterVec
	crawlSeconds  prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		channelsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_channels_total",
			Help: "Channels and threads fully crawled.",
		})
		messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_messages_total",
			Help: "Messages emitted to the record sink.",
		})
		usersTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_users_total",
			Help: "Distinct users resolved into the registry.",
		})
		pinsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "clubsync_pin_reactions_total",
			Help: "Pin reactions recorded.",
		})
		crawlsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clubsync_crawls_total",
			Help: "Crawl runs by terminal status.",
		}, []string{"status"})
		crawlSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "clubsync_crawl_duration_seconds",
			Help:    "Wall-clock duration of crawl runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		})
	})
}

// ObserveChannel records one finished channel's contribution.
func ObserveChannel(stats club.ChannelStats) {
	Init()
	channelsTotal.Inc()
	messagesTotal.Add(float64(stats.Messages))
	usersTotal.Add(float64(stats.Users))
	pinsTotal.Add(float64(stats.Pins))
}

// ObserveCrawl records one finished crawl run.
func ObserveCrawl(outcome club.Outcome) {
	Init()
	status := "completed"
	if outcome.Failed() {
		status = "failed"
	}
	crawlsTotal.WithLabelValues(status).Inc()
	crawlSeconds.Observe(outcome.Elapsed.Seconds())
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
