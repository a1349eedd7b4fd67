package change

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

// Kind は変更されたレコードの種類
type Kind string

const (
	KindSeat     Kind = "seat"
	KindOccupant Kind = "occupant"
)

// SeatSnapshot は座席レコードの全状態
type SeatSnapshot struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	OccupantID   *string    `json:"occupant_id"`
	OccupantName *string    `json:"occupant_name"`
	BookedUntil  *time.Time `json:"booked_until"`
	Deleted      bool       `json:"deleted,omitempty"`
}

// OccupantSnapshot は利用者レコードの全状態
type OccupantSnapshot struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	SeatID *string `json:"seat_id"`
}

// Event は一件のレコード変更を表す
// 受信側はキーごとに新しい方だけを採用すればよい
type Event struct {
	Kind       Kind              `json:"kind"`
	Key        string            `json:"key"`
	Generation int64             `json:"generation"`
	Version    int               `json:"version"`
	Seat       *SeatSnapshot     `json:"seat,omitempty"`
	Occupant   *OccupantSnapshot `json:"occupant,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// SeatKey は座席の購読キーを返す
func SeatKey(id string) string { return string(KindSeat) + ":" + id }

// OccupantKey は利用者の購読キーを返す
func OccupantKey(id string) string { return string(KindOccupant) + ":" + id }

// SeatChanged は座席の現在状態からイベントを作る
func SeatChanged(s *seat.Seat, at time.Time) Event {
	return Event{
		Kind:       KindSeat,
		Key:        SeatKey(s.ID),
		Generation: s.Generation,
		Version:    s.Version,
		Seat: &SeatSnapshot{
			ID:           s.ID,
			Status:       string(s.Status),
			OccupantID:   s.OccupantID,
			OccupantName: s.OccupantName,
			BookedUntil:  s.BookedUntil,
		},
		OccurredAt: at,
	}
}

// SeatDeleted は削除された座席の墓標イベントを作る
// 墓標は同じ世代の最後の版なので、作り直された座席の世代には必ず負ける
func SeatDeleted(s *seat.Seat, at time.Time) Event {
	return SeatChanged(s, at).Tombstone(at)
}

// Tombstone は座席イベントの次の版として削除を表すイベントを返す
// 元のイベントのスナップショットは変更しない
func (e Event) Tombstone(at time.Time) Event {
	if e.Seat != nil {
		snap := *e.Seat
		snap.Deleted = true
		e.Seat = &snap
	}
	e.Version++
	e.OccurredAt = at
	return e
}

// OccupantChanged は利用者の現在状態からイベントを作る
func OccupantChanged(o *occupant.Occupant, at time.Time) Event {
	return Event{
		Kind:       KindOccupant,
		Key:        OccupantKey(o.ID),
		Generation: o.CreatedAt.UnixMilli(),
		Version:    o.Version,
		Occupant: &OccupantSnapshot{
			ID:     o.ID,
			Name:   o.Name,
			Role:   string(o.Role),
			SeatID: o.SeatID,
		},
		OccurredAt: at,
	}
}

// Newer は e が other より新しい状態かを返す
// 同じIDで作り直された座席はストアが採番した大きい世代を持つ
func (e Event) Newer(other Event) bool {
	if e.Generation != other.Generation {
		return e.Generation > other.Generation
	}
	return e.Version > other.Version
}

// ToSeat はスナップショットを座席エンティティに戻す
func (s *SeatSnapshot) ToSeat() *seat.Seat {
	return &seat.Seat{
		ID:           s.ID,
		Status:       seat.Status(s.Status),
		OccupantID:   s.OccupantID,
		OccupantName: s.OccupantName,
		BookedUntil:  s.BookedUntil,
	}
}

// Filter は購読者が受け取るイベントを選ぶ
type Filter func(Event) bool

// All は全イベントを受け取る
func All(Event) bool { return true }

// ForObserver は座席全体と本人の利用者レコードを受け取るフィルタを返す
// 運用者は全利用者の変更も受け取る
func ForObserver(occupantID string, operator bool) Filter {
	own := OccupantKey(occupantID)
	return func(e Event) bool {
		if e.Kind == KindSeat || operator {
			return true
		}
		return e.Key == own
	}
}

// Publisher はコミット済みの変更を配信する
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Publishers は複数の配信先へ順に配信する
type Publishers []Publisher

// Publish は全配信先に配信し、失敗はまとめて返す
func (ps Publishers) Publish(ctx context.Context, events ...Event) error {
	var errs []error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseKey はキーから種類とIDを取り出す
func ParseKey(key string) (Kind, string, bool) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return "", "", false
	}
	switch Kind(kind) {
	case KindSeat, KindOccupant:
		return Kind(kind), id, true
	}
	return "", "", false
}
