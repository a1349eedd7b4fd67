package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

const lockKeyPrefix = "seat-lock:"

// 自分が置いた値のときだけ削除する
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock は取得済みの座席ロック
type Lock interface {
	Release(ctx context.Context) error
}

// LockManagerInterface は座席単位の排他に使うロック取得の抽象
type LockManagerInterface interface {
	AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (Lock, error)
}

// LockManager は SET NX PX で座席キーごとのロックを取る
// TTL が過ぎたロックは所有者が落ちても自然に外れる
type LockManager struct {
	client *redis.Client
}

func NewLockManager(client *redis.Client) *LockManager {
	return &LockManager{client: client}
}

type seatLock struct {
	client *redis.Client
	key    string
	token  string
}

// AcquireLock は一度だけロックの取得を試みる
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	l := &seatLock{
		client: m.client,
		key:    lockKeyPrefix + key,
		token:  uuid.NewString(),
	}
	ok, err := m.client.SetNX(ctx, l.key, l.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return l, nil
}

// AcquireLockWithRetry は保持されている間 retryDelay 間隔で最大 maxRetries 回試す
// Redis 自体のエラーは再試行しない
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (Lock, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	for attempt := 1; ; attempt++ {
		l, err := m.AcquireLock(ctx, key, ttl)
		if err == nil || !errors.Is(err, ErrLockNotAcquired) || attempt >= maxRetries {
			return l, err
		}
		if err := sleep(ctx, retryDelay); err != nil {
			return nil, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ LockManagerInterface = (*LockManager)(nil)

// Release はロックを解放する
// TTL 切れで他者に渡っていた場合は ErrLockNotOwned
func (l *seatLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}
