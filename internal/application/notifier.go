package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	redisinfra "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

const publishTimeout = 5 * time.Second

// notifier はコミット後にキャッシュを無効化し変更を配信する
// どちらの失敗もコミット済みの結果は変えない
type notifier struct {
	cache     redisinfra.SeatCacheInterface
	publisher change.Publisher
}

func (n notifier) afterCommit(ctx context.Context, events []change.Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if n.cache != nil {
		if err := n.cache.Invalidate(ctx); err != nil {
			logger.FromContext(ctx).Warn("座席キャッシュの無効化に失敗しました", zap.Error(err))
		}
	}
	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, events...); err != nil {
			logger.FromContext(ctx).Warn("変更の配信に失敗しました", zap.Int("events", len(events)), zap.Error(err))
		}
	}
}
