// Package crawl coordinates the worker pool over the channel queue.
package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NelliaS/junior.guru/internal/club"
	"github.com/NelliaS/junior.guru/internal/queue"
	"github.com/NelliaS/junior.guru/internal/registry"
	"github.com/NelliaS/junior.guru/internal/worker"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 5

// Engine owns one crawl at a time: it seeds the queue, fans out workers,
// races queue drain against the first worker exit, and cancels whatever is
// still running once either side wins.
type Engine struct {
	provider  club.HistoryProvider
	sink      club.RecordSink
	observer  club.Observer
	workers   int
	workerCfg worker.Config
	logger    *zap.Logger

	// runWorker drives one worker's loop; tests swap it out to simulate
	// worker exits Run cannot produce through the real loop.
	runWorker func(ctx context.Context, w *worker.Worker) error
}

// New constructs an Engine. A non-positive worker count falls back to
// DefaultWorkers; a nil logger falls back to a nop logger.
func New(
	provider club.HistoryProvider,
	sink club.RecordSink,
	observer club.Observer,
	workers int,
	workerCfg worker.Config,
	logger *zap.Logger,
) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider:  provider,
		sink:      sink,
		observer:  observer,
		workers:   workers,
		workerCfg: workerCfg,
		logger:    logger,
		runWorker: func(ctx context.Context, w *worker.Worker) error {
			return w.Run(ctx)
		},
	}
}

// Run crawls the seed channels plus everything they transitively disclose.
// It blocks until either the queue fully drains or the first worker dies,
// then joins the rest of the pool and returns the outcome. Exactly one
// error is ever surfaced: the first one observed.
func (e *Engine) Run(ctx context.Context, seeds []club.ChannelRef) club.Outcome {
	started := time.Now()
	runID := uuid.New()
	log := e.logger.With(zap.String("run_id", runID.String()))
	log.Info("starting crawl",
		zap.Int("seeds", len(seeds)),
		zap.Int("workers", e.workers),
	)

	reg := registry.New()
	q := queue.New()
	for _, seed := range seeds {
		q.Put(seed)
	}

	collector := &statsCollector{next: e.observer}

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Results are buffered so workers finishing during drain-out never
	// block; their errors are cancellation noise and get discarded.
	results := make(chan error, e.workers)
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		w := worker.New(
			q,
			e.provider,
			e.sink,
			reg,
			collector,
			e.workerCfg,
			log.With(zap.Int("worker", i)),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.runWorker(workerCtx, w)
		}()
	}

	drained := make(chan struct{})
	go func() {
		if q.Join(workerCtx) == nil {
			close(drained)
		}
	}()

	var firstErr error
	select {
	case <-drained:
	case err := <-results:
		// A worker finished before the queue drained. Its loop is
		// unbounded, so a nil error here means a logic fault unless the
		// caller canceled the whole crawl.
		switch {
		case err != nil:
			firstErr = err
		case ctx.Err() != nil:
			firstErr = ctx.Err()
		default:
			firstErr = club.ErrWorkerExited
		}
	}

	cancel()
	wg.Wait()

	outcome := club.Outcome{
		RunID:    runID,
		Users:    reg.Snapshot(),
		Counters: collector.totals(),
		Elapsed:  time.Since(started),
		Err:      firstErr,
	}

	if outcome.Failed() {
		log.Error("crawl failed",
			zap.Error(outcome.Err),
			zap.Int("channels", outcome.Counters.Channels),
			zap.Duration("elapsed", outcome.Elapsed),
		)
	} else {
		log.Info("crawl completed",
			zap.Int("channels", outcome.Counters.Channels),
			zap.Int("messages", outcome.Counters.Messages),
			zap.Int("users", outcome.Counters.Users),
			zap.Int("pins", outcome.Counters.Pins),
			zap.Duration("elapsed", outcome.Elapsed),
		)
	}
	if e.observer != nil {
		e.observer.CrawlDone(outcome)
	}
	return outcome
}

// statsCollector folds per-channel stats into crawl totals and forwards
// them to the caller's observer; the Engine reports the final outcome
// itself, so CrawlDone is not forwarded here.
type statsCollector struct {
	next     club.Observer
	mu       sync.Mutex
	counters club.Counters
}

func (c *statsCollector) ChannelDone(stats club.ChannelStats) {
	c.mu.Lock()
	c.counters.Add(stats)
	c.mu.Unlock()
	if c.next != nil {
		c.next.ChannelDone(stats)
	}
}

func (c *statsCollector) CrawlDone(club.Outcome) {}

func (c *statsCollector) totals() club.Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}
