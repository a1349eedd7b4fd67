package bus

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
)

// Loader はストアから現在の状態をイベントとして読み直す
type Loader func(ctx context.Context) ([]change.Event, error)

// Resync は読み直した状態を Hub に流し、取りこぼした変更を埋める
// 読み直す前に保持していた座席が結果に無ければ削除されたとみなして墓標を流す
// 墓標は読み直し前に保持していた版から作るので、途中で作り直された座席は消さない
func (h *Hub) Resync(ctx context.Context, load Loader) error {
	before := h.liveSeats()

	events, err := load(ctx)
	if err != nil {
		return err
	}

	present := make(map[string]struct{}, len(events))
	for _, ev := range events {
		present[ev.Key] = struct{}{}
	}
	now := time.Now()
	for _, ev := range before {
		if _, ok := present[ev.Key]; !ok {
			events = append(events, ev.Tombstone(now))
		}
	}
	return h.Publish(ctx, events...)
}

// liveSeats は削除されていない座席の最新イベントを返す
func (h *Hub) liveSeats() []change.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]change.Event, 0, len(h.latest))
	for _, ev := range h.latest {
		if ev.Kind == change.KindSeat && ev.Seat != nil && !ev.Seat.Deleted {
			events = append(events, ev)
		}
	}
	return events
}
