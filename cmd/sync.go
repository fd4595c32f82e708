package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/NelliaS/junior.guru/internal/app"
	"github.com/NelliaS/junior.guru/internal/config"
	"github.com/NelliaS/junior.guru/internal/crawl"
	"github.com/NelliaS/junior.guru/internal/worker"
)

func newSyncCmd() *cobra.Command {
	var workers int
	var guildID string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Runs one full crawl of the club",
		Long: `Crawls every readable channel of the guild concurrently, following
threads discovered along the way, and replaces the stored club content
with the crawl's result. Members who never wrote anything are imported
afterwards so the member list stays complete.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, workers, guildID)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "override crawler.workers")
	cmd.Flags().StringVar(&guildID, "guild", "", "override discord.guild_id")
	return cmd
}

func runSync(cmd *cobra.Command, workers int, guildID string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if workers > 0 {
		cfg.Crawler.Workers = workers
	}
	if guildID != "" {
		cfg.Discord.GuildID = guildID
	}

	ctx := cmd.Context()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer application.Close()
	log := application.Logger

	// Each run starts from a clean slate, same as dropping and recreating
	// the content tables.
	if err := application.Sink.Reset(ctx); err != nil {
		return fmt.Errorf("reset sink: %w", err)
	}

	seeds, err := application.Provider.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	engine := crawl.New(
		application.Provider,
		application.Sink,
		application.Observer,
		cfg.Crawler.Workers,
		worker.Config{
			PinLabels:      cfg.Crawler.PinLabels,
			UpvoteLabels:   cfg.Crawler.UpvoteLabels,
			DownvoteLabels: cfg.Crawler.DownvoteLabels,
		},
		log,
	)
	outcome := engine.Run(ctx, seeds)
	if outcome.Failed() {
		return fmt.Errorf("crawl: %w", outcome.Err)
	}

	imported, err := crawl.ImportRemainingMembers(
		ctx, application.Provider, application.Sink, outcome.Users, log)
	if err != nil {
		return fmt.Errorf("import remaining members: %w", err)
	}

	log.Info("sync finished",
		zap.Int("messages", outcome.Counters.Messages),
		zap.Int("authors", len(outcome.Users)),
		zap.Int("members", outcome.MembersCount()+imported),
		zap.Int("pins", outcome.Counters.Pins),
		zap.Duration("elapsed", outcome.Elapsed),
	)
	return nil
}
