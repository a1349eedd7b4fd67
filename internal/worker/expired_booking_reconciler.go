package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// BookingReclaimer は期限切れの予約を空席に戻すインターフェース
type BookingReclaimer interface {
	ReclaimExpiredBookings(ctx context.Context) (int, error)
}

// ExpiredBookingReconciler は期限切れ予約を定期的に片付けるワーカー
// 予約の期限判定は操作時に行われるので、これは表示と集計のための後始末
type ExpiredBookingReconciler struct {
	reclaimer BookingReclaimer
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
}

// NewExpiredBookingReconciler は新しいワーカーを作成する
// interval が0以下なら Start はすぐに戻る
func NewExpiredBookingReconciler(r BookingReclaimer, interval time.Duration) *ExpiredBookingReconciler {
	return &ExpiredBookingReconciler{
		reclaimer: r,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はワーカーを開始する。停止するまでブロックする
func (w *ExpiredBookingReconciler) Start(ctx context.Context) {
	defer close(w.doneCh)
	if w.interval <= 0 {
		logger.Info("期限切れ予約の回収は無効です")
		return
	}

	logger.Info("期限切れ予約の回収を開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ予約の回収を停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("期限切れ予約の回収を停止（シグナル受信）")
			return
		case <-ticker.C:
			w.reconcile(ctx)
		}
	}
}

// Stop はワーカーを停止し、終了を待つ
func (w *ExpiredBookingReconciler) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *ExpiredBookingReconciler) reconcile(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れ予約の回収開始")

	count, err := w.reclaimer.ReclaimExpiredBookings(ctx)
	if err != nil {
		log.Error("期限切れ予約の回収失敗", zap.Error(err), zap.Int("reclaimed", count))
		return
	}

	if count > 0 {
		log.Info("期限切れ予約を回収", zap.Int("count", count))
	} else {
		log.Debug("期限切れ予約なし")
	}
}
