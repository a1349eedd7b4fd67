package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

const (
	// 無通信がこの時間続いたら PING で接続を確かめる
	feedIdleTimeout = 30 * time.Second
	feedRetryWait   = time.Second
)

// ChangeFeed は Redis Pub/Sub で変更イベントを他のAPIインスタンスへ中継する
// Pub/Sub は切断中のメッセージを保持しないので、再購読のたびに resync で状態を読み直す
type ChangeFeed struct {
	client  *redis.Client
	channel string
	idle    time.Duration
}

// NewChangeFeed は新しい ChangeFeed を作成する
func NewChangeFeed(client *redis.Client, channel string) *ChangeFeed {
	return &ChangeFeed{client: client, channel: channel, idle: feedIdleTimeout}
}

// Publish はイベントをチャンネルへ送る
func (f *ChangeFeed) Publish(ctx context.Context, events ...change.Event) error {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("変更イベントの変換に失敗: %w", err)
		}
		if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
			return fmt.Errorf("変更イベントの送信に失敗: %w", err)
		}
	}
	return nil
}

// Run はチャンネルを購読し、受け取ったイベントを sink へ渡す
// 接続が切れると go-redis が再接続して再購読する。その後 resync を呼び、
// 切断中に流れて届かなかった変更を埋める。resync は nil でもよい
// ctx がキャンセルされるまで戻らない
func (f *ChangeFeed) Run(ctx context.Context, sink change.Publisher, resync func(context.Context) error) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()
	// 受信待ちは ctx のキャンセルでは解けないので閉じて抜ける
	stop := context.AfterFunc(ctx, func() { _ = pubsub.Close() })
	defer stop()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("変更チャンネルの購読に失敗: %w", err)
	}

	for {
		msg, err := pubsub.ReceiveTimeout(ctx, f.idle)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if isTimeout(err) {
				// 応答が無ければ次の受信でエラーになり再接続される
				_ = pubsub.Ping(ctx)
				continue
			}
			logger.Warn("変更チャンネルの受信に失敗しました。再接続します", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(feedRetryWait):
			}
			continue
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			if m.Kind == "subscribe" && resync != nil {
				f.resync(ctx, resync)
			}
		case *redis.Message:
			f.relay(ctx, sink, m.Payload)
		}
	}
}

func (f *ChangeFeed) resync(ctx context.Context, resync func(context.Context) error) {
	if err := resync(ctx); err != nil {
		logger.Warn("再購読後の状態の読み直しに失敗しました", zap.String("channel", f.channel), zap.Error(err))
		return
	}
	logger.Info("再購読後に状態を読み直しました", zap.String("channel", f.channel))
}

func (f *ChangeFeed) relay(ctx context.Context, sink change.Publisher, payload string) {
	var ev change.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		logger.Warn("不正な変更イベントを破棄しました", zap.Error(err))
		return
	}
	if err := sink.Publish(ctx, ev); err != nil {
		logger.Warn("変更イベントの中継に失敗しました", zap.String("key", ev.Key), zap.Error(err))
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

var _ change.Publisher = (*ChangeFeed)(nil)
