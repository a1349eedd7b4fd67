package application

import (
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

type options struct {
	now           func() time.Time
	metrics       *metrics.Metrics
	location      *time.Location
	lockTTL       time.Duration
	lockRetries   int
	lockRetryWait time.Duration
	cacheTTL      time.Duration
}

func defaultOptions() options {
	return options{
		now:           time.Now,
		location:      time.UTC,
		lockTTL:       5 * time.Second,
		lockRetries:   3,
		lockRetryWait: 50 * time.Millisecond,
		cacheTTL:      5 * time.Second,
	}
}

// Option はサービスの設定を変更する
type Option func(*options)

// WithClock は現在時刻の取得方法を差し替える
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics は操作結果を記録するメトリクスを設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLocation は表示用のタイムゾーンを設定する
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithLockSettings は座席ロックのTTLとリトライを設定する
func WithLockSettings(ttl time.Duration, retries int, wait time.Duration) Option {
	return func(o *options) {
		o.lockTTL = ttl
		o.lockRetries = retries
		o.lockRetryWait = wait
	}
}

// WithCacheTTL は座席一覧キャッシュの有効期間を設定する
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.cacheTTL = ttl }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
