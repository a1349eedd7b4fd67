// Package view は座席の状態を観測者向けの表示に変換する
package view

import (
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

const (
	LabelVacant = "Vacant"
	LabelBooked = "Booked"
	// 閲覧者自身の有効な予約。期限は BookedUntil で渡す
	LabelYours = "Yours"
)

// Viewer は座席表を見ている人
type Viewer struct {
	ID       string
	Operator bool
}

// Tile は座席表の1マス
type Tile struct {
	SeatID       string              `json:"seat_id"`
	State        seat.EffectiveState `json:"state"`
	Label        string              `json:"label"`
	Clickable    bool                `json:"clickable"`
	Mine         bool                `json:"mine"`
	OccupantName *string             `json:"occupant_name,omitempty"`
	BookedUntil  *time.Time          `json:"booked_until,omitempty"`
}

// TillLabel は予約期限の表示 "Till HH:MM" を返す
func TillLabel(until time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return "Till " + until.In(loc).Format("15:04")
}

// Project は座席一覧を now 時点の表示に変換する
// 期限切れの予約は空席として見せる
func Project(seats []*seat.Seat, viewer Viewer, now time.Time, loc *time.Location) []Tile {
	holding := false
	for _, s := range seats {
		if s.IsHeldBy(viewer.ID) {
			holding = true
			break
		}
	}

	tiles := make([]Tile, len(seats))
	for i, s := range seats {
		tiles[i] = tileFor(s, viewer, holding, now, loc)
	}
	return tiles
}

func tileFor(s *seat.Seat, viewer Viewer, holding bool, now time.Time, loc *time.Location) Tile {
	state := s.EffectiveStateAt(now)
	mine := viewer.ID != "" && s.IsHeldBy(viewer.ID)
	t := Tile{SeatID: s.ID, State: state, Mine: mine}

	switch state {
	case seat.StateVacant, seat.StateExpiredBooking:
		t.Label = LabelVacant
	case seat.StateForcedOccupied:
		t.Label = LabelBooked
	case seat.StateActiveBooking:
		t.Label = TillLabel(*s.BookedUntil, loc)
		if mine {
			t.Label = LabelYours
		}
		t.OccupantName = s.OccupantName
		t.BookedUntil = s.BookedUntil
	}

	switch {
	case viewer.Operator:
		t.Clickable = true
	case mine:
		// 自分の座席は解放のために押せる
		t.Clickable = true
	default:
		t.Clickable = state.IsClaimable() && !holding
	}
	return t
}
