// Package progress implements advisory crawl observers.
package progress

import (
	"go.uber.org/zap"

	"github.com/NelliaS/junior.guru/internal/club"
	"github.com/NelliaS/junior.guru/internal/metrics"
)

// LogObserver reports per-channel counts and the final outcome through zap.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver builds a LogObserver.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger}
}

// ChannelDone logs one channel's contribution.
func (o *LogObserver) ChannelDone(stats club.ChannelStats) {
	o.logger.Info("channel crawled",
		zap.String("channel_id", stats.ChannelID),
		zap.String("channel_name", stats.ChannelName),
		zap.Int("messages", stats.Messages),
		zap.Int("users", stats.Users),
		zap.Int("pins", stats.Pins),
	)
}

// CrawlDone logs the run summary.
func (o *LogObserver) CrawlDone(outcome club.Outcome) {
	o.logger.Info("crawl summary",
		zap.String("run_id", outcome.RunID.String()),
		zap.Int("channels", outcome.Counters.Channels),
		zap.Int("messages", outcome.Counters.Messages),
		zap.Int("users", outcome.Counters.Users),
		zap.Int("pins", outcome.Counters.Pins),
		zap.Duration("elapsed", outcome.Elapsed),
		zap.Bool("failed", outcome.Failed()),
	)
}

// MetricsObserver feeds crawl progress into the Prometheus collectors.
type MetricsObserver struct{}

// NewMetricsObserver builds a MetricsObserver and readies the collectors.
func NewMetricsObserver() *MetricsObserver {
	metrics.Init()
	return &MetricsObserver{}
}

// ChannelDone records one finished channel.
func (MetricsObserver) ChannelDone(stats club.ChannelStats) {
	metrics.ObserveChannel(stats)
}

// CrawlDone records one finished run.
func (MetricsObserver) CrawlDone(outcome club.Outcome) {
	metrics.ObserveCrawl(outcome)
}

// Multi fans progress out to several observers in order.
type Multi []club.Observer

// ChannelDone forwards to every observer.
func (m Multi) ChannelDone(stats club.ChannelStats) {
	for _, o := range m {
		if o != nil {
			o.ChannelDone(stats)
		}
	}
}

// CrawlDone forwards to every observer.
func (m Multi) CrawlDone(outcome club.Outcome) {
	for _, o := range m {
		if o != nil {
			o.CrawlDone(outcome)
		}
	}
}
