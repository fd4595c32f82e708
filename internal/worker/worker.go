// Package worker implements the channel crawl loop.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NelliaS/junior.guru/internal/club"
	"github.com/NelliaS/junior.guru/internal/queue"
)

// Config controls how records are shaped from reaction tallies.
type Config struct {
	PinLabels      []string
	UpvoteLabels   []string
	DownvoteLabels []string
}

// Worker consumes channels from the queue and crawls each one fully:
// messages are shaped and emitted to the sink, authors and qualifying
// reactors are deduplicated through the registry, and threads discovered
// mid-read are fed back into the queue.
type Worker struct {
	queue     *queue.Queue
	provider  club.HistoryProvider
	sink      club.RecordSink
	registry  club.Registry
	observer  club.Observer
	pins      club.LabelSet
	upvotes   club.LabelSet
	downvotes club.LabelSet
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	q *queue.Queue,
	provider club.HistoryProvider,
	sink club.RecordSink,
	registry club.Registry,
	observer club.Observer,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if len(cfg.PinLabels) == 0 {
		cfg.PinLabels = club.DefaultPinLabels
	}
	if len(cfg.UpvoteLabels) == 0 {
		cfg.UpvoteLabels = club.DefaultUpvoteLabels
	}
	if len(cfg.DownvoteLabels) == 0 {
		cfg.DownvoteLabels = club.DefaultDownvoteLabels
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:     q,
		provider:  provider,
		sink:      sink,
		registry:  registry,
		observer:  observer,
		pins:      club.NewLabelSet(cfg.PinLabels...),
		upvotes:   club.NewLabelSet(cfg.UpvoteLabels...),
		downvotes: club.NewLabelSet(cfg.DownvoteLabels...),
		logger:    logger,
	}
}

// Run loops forever: take a channel, crawl it, mark it done. It returns nil
// when the context is canceled and the first provider or sink error
// otherwise. A failed channel is deliberately not marked done; the crawl is
// being aborted, not repaired.
func (w *Worker) Run(ctx context.Context) error {
	for {
		ch, err := w.queue.Take(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := w.processChannel(ctx, ch); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("channel #%s: %w", ch.ID, err)
		}
		w.queue.TaskDone()
	}
}

func (w *Worker) processChannel(ctx context.Context, ch club.ChannelRef) error {
	log := w.logger.With(
		zap.String("channel_id", ch.ID),
		zap.String("channel_name", ch.Name),
	)
	log.Info("reading channel")

	stats := club.ChannelStats{ChannelID: ch.ID, ChannelName: ch.Name}

	iter, err := w.provider.History(ctx, ch)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}

	for iter.Next(ctx) {
		item := iter.Item()

		if item.Thread != nil {
			log.Debug("discovered thread",
				zap.String("thread_id", item.Thread.ID),
				zap.String("thread_name", item.Thread.Name),
			)
			w.queue.Put(*item.Thread)
		}

		if err := w.resolveUser(ctx, item.Author, &stats); err != nil {
			return err
		}

		msg := item.Message
		msg.UpvotesCount = w.upvotes.Count(item.Reactions)
		msg.DownvotesCount = w.downvotes.Count(item.Reactions)
		msg.PinReactionsCount = w.pins.Count(item.Reactions)
		if err := w.sink.InsertMessage(ctx, msg); err != nil {
			return fmt.Errorf("insert message %s: %w", msg.ID, err)
		}
		stats.Messages++

		if err := w.processReactors(ctx, item, msg.ID, &stats); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("walk history: %w", err)
	}

	log.Info("channel done",
		zap.Int("messages", stats.Messages),
		zap.Int("users", stats.Users),
		zap.Int("pins", stats.Pins),
	)
	if w.observer != nil {
		w.observer.ChannelDone(stats)
	}
	return nil
}

func (w *Worker) processReactors(
	ctx context.Context,
	item club.HistoryItem,
	messageID string,
	stats *club.ChannelStats,
) error {
	if item.Reactors == nil {
		return nil
	}
	reactors, err := item.Reactors(ctx)
	if err != nil {
		return fmt.Errorf("fetch reactors for message %s: %w", messageID, err)
	}
	for _, info := range reactors {
		if err := w.resolveUser(ctx, info, stats); err != nil {
			return err
		}
		pin := club.PinReaction{UserID: info.ID, MessageID: messageID}
		if err := w.sink.InsertPinReaction(ctx, pin); err != nil {
			return fmt.Errorf("insert pin reaction: %w", err)
		}
		stats.Pins++
	}
	return nil
}

func (w *Worker) resolveUser(ctx context.Context, info club.UserInfo, stats *club.ChannelStats) error {
	user, created := w.registry.Resolve(info.ID, func() *club.User {
		return club.NewUser(info)
	})
	if !created {
		return nil
	}
	w.logger.Debug("new user",
		zap.String("user_id", user.ID),
		zap.String("display_name", user.DisplayName),
	)
	if err := w.sink.InsertUser(ctx, *user); err != nil {
		return fmt.Errorf("insert user %s: %w", user.ID, err)
	}
	stats.Users++
	return nil
}
