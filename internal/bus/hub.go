// Package bus はコミット済みの変更をプロセス内の購読者へ配る
package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

// ErrClosed は購読が終了していることを表す
var ErrClosed = errors.New("購読は終了しました")

// Hub は変更イベントを購読者へ配る
// キーごとに最新のイベントを覚えておき、古いものや重複は配らない
type Hub struct {
	mu      sync.Mutex
	latest  map[string]change.Event
	subs    map[*Subscription]struct{}
	closed  bool
	metrics *metrics.Metrics
}

// NewHub は Hub を作成する。m は nil でもよい
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		latest:  make(map[string]change.Event),
		subs:    make(map[*Subscription]struct{}),
		metrics: m,
	}
}

// Publish はイベントを全購読者へ届ける
// 購読者が遅くてもブロックしない
func (h *Hub) Publish(_ context.Context, events ...change.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	for _, ev := range events {
		if prev, ok := h.latest[ev.Key]; ok && !ev.Newer(prev) {
			continue
		}
		h.latest[ev.Key] = ev
		for sub := range h.subs {
			if sub.filter(ev) && sub.offer(ev) && h.metrics != nil {
				h.metrics.BusCoalescedTotal.Inc()
			}
		}
	}
	return nil
}

// Latest はキーの最新イベントを返す
func (h *Hub) Latest(key string) (change.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev, ok := h.latest[key]
	return ev, ok
}

// Subscribe は filter に合うイベントを受け取る購読を開始する
// 購読開始より前のイベントは届かない
func (h *Hub) Subscribe(filter change.Filter) *Subscription {
	if filter == nil {
		filter = change.All
	}
	sub := &Subscription{
		hub:     h,
		filter:  filter,
		pending: make(map[string]change.Event),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.closeOnce.Do(func() { close(sub.done) })
		return sub
	}
	h.subs[sub] = struct{}{}
	if h.metrics != nil {
		h.metrics.BusSubscribers.Inc()
	}
	return sub
}

// Subscribers は現在の購読者数を返す
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close は全ての購読を終了する
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscription]struct{})
	h.closed = true
	h.mu.Unlock()

	for sub := range subs {
		sub.closeOnce.Do(func() { close(sub.done) })
		if h.metrics != nil {
			h.metrics.BusSubscribers.Dec()
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	if h.metrics != nil {
		h.metrics.BusSubscribers.Dec()
	}
}

var _ change.Publisher = (*Hub)(nil)
