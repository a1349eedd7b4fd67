package view

import (
	"sync"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

// Board は変更イベントから組み立てる観測者側の座席表
// キーごとに最新の状態だけを保持するので重複や再送は無害
type Board struct {
	mu     sync.RWMutex
	viewer Viewer
	latest map[string]change.Event
}

// NewBoard は空の座席表を作る
func NewBoard(viewer Viewer) *Board {
	return &Board{viewer: viewer, latest: make(map[string]change.Event)}
}

// Apply はイベントを反映し、状態が変わった場合 true を返す
func (b *Board) Apply(ev change.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if held, ok := b.latest[ev.Key]; ok && !ev.Newer(held) {
		return false
	}
	b.latest[ev.Key] = ev
	return true
}

// Seats は削除されていない座席をID順に返す
func (b *Board) Seats() []*seat.Seat {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seats := make([]*seat.Seat, 0, len(b.latest))
	for _, ev := range b.latest {
		if ev.Kind != change.KindSeat || ev.Seat == nil || ev.Seat.Deleted {
			continue
		}
		seats = append(seats, ev.Seat.ToSeat())
	}
	seat.SortByID(seats)
	return seats
}

// MySeatID は観測者本人の利用者レコード上の座席IDを返す
func (b *Board) MySeatID() *string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ev, ok := b.latest[change.OccupantKey(b.viewer.ID)]
	if !ok || ev.Occupant == nil {
		return nil
	}
	return ev.Occupant.SeatID
}

// Tiles は now 時点の表示を返す
func (b *Board) Tiles(now time.Time, loc *time.Location) []Tile {
	return Project(b.Seats(), b.viewer, now, loc)
}
