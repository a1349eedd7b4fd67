package bus

import (
	"context"
	"sync"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
)

// Subscription は一人の購読者の受信箱
// 未配達の間に同じキーの変更が来たら最新の状態で上書きするので、
// 受信が遅れても最終的な状態は必ず届く
type Subscription struct {
	hub    *Hub
	filter change.Filter

	mu      sync.Mutex
	pending map[string]change.Event
	order   []string

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// offer は受信箱にイベントを入れる
// 未配達のイベントを上書きした場合は true を返す
func (s *Subscription) offer(ev change.Event) bool {
	s.mu.Lock()
	prev, queued := s.pending[ev.Key]
	switch {
	case !queued:
		s.pending[ev.Key] = ev
		s.order = append(s.order, ev.Key)
	case ev.Newer(prev):
		s.pending[ev.Key] = ev
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return queued
}

// Next は次のイベントを返す。届くまでブロックする
// 受信箱に残っているイベントは終了後も取り出せる
func (s *Subscription) Next(ctx context.Context) (change.Event, error) {
	for {
		if ev, ok := s.pop(); ok {
			return ev, nil
		}
		select {
		case <-ctx.Done():
			return change.Event{}, ctx.Err()
		case <-s.done:
			if ev, ok := s.pop(); ok {
				return ev, nil
			}
			return change.Event{}, ErrClosed
		case <-s.notify:
		}
	}
}

// Pending は未配達のイベント数を返す
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Close は購読を終了する。何度呼んでもよい
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
}

// Done は購読が終了すると閉じるチャネルを返す
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) pop() (change.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return change.Event{}, false
	}
	key := s.order[0]
	s.order = s.order[1:]
	ev := s.pending[key]
	delete(s.pending, key)
	return ev, true
}
