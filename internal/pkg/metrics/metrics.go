package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 座席操作の総数（operation: book/release/toggle/create/delete/reclaim, result: success/rejected/error）
	SeatOperationsTotal *prometheus.CounterVec

	// 座席ロックの取得時間（status: success/failed）
	SeatLockDuration *prometheus.HistogramVec

	// 実効状態ごとの座席数（state）
	Seats *prometheus.GaugeVec

	// 変更ストリームの購読者数
	BusSubscribers prometheus.Gauge

	// 配信前に新しい状態で上書きされた変更の数
	BusCoalescedTotal prometheus.Counter
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		SeatOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_operations_total",
				Help: "Total number of seat operations by outcome",
			},
			[]string{"operation", "result"},
		),
		SeatLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seat_lock_duration_seconds",
				Help:    "Time spent acquiring per-seat distributed locks",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"status"},
		),
		Seats: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "seats",
				Help: "Current number of seats by effective state",
			},
			[]string{"state"},
		),
		BusSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bus_subscribers",
				Help: "Current number of change stream subscribers",
			},
		),
		BusCoalescedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bus_coalesced_total",
				Help: "Pending changes replaced by a newer snapshot before delivery",
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SeatOperationsTotal,
		m.SeatLockDuration,
		m.Seats,
		m.BusSubscribers,
		m.BusCoalescedTotal,
	)

	return m
}

// ObserveOperation は座席操作の結果を記録する
// nil の Metrics でも呼び出せる
func (m *Metrics) ObserveOperation(operation, result string) {
	if m == nil {
		return
	}
	m.SeatOperationsTotal.WithLabelValues(operation, result).Inc()
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
