package crawl

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/NelliaS/junior.guru/internal/club"
)

// ImportRemainingMembers stores every guild member who never authored a
// message or qualifying reaction during the crawl. It returns how many such
// members were added.
func ImportRemainingMembers(
	ctx context.Context,
	provider club.HistoryProvider,
	sink club.RecordSink,
	seen map[string]*club.User,
	logger *zap.Logger,
) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("looking for members without a single message")

	members, err := provider.ListMembers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list members: %w", err)
	}

	added := 0
	for _, info := range members {
		if _, ok := seen[info.ID]; ok {
			continue
		}
		logger.Debug("remaining member",
			zap.String("user_id", info.ID),
			zap.String("display_name", info.DisplayName),
		)
		if err := sink.InsertUser(ctx, *club.NewUser(info)); err != nil {
			return added, fmt.Errorf("insert member %s: %w", info.ID, err)
		}
		added++
	}
	logger.Info("remaining members imported", zap.Int("count", added))
	return added, nil
}
