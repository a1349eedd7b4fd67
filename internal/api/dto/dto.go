// Package dto はHTTP APIのリクエストとレスポンスの形を定義する
// サーバーとCLIの両方から使う
package dto

import (
	"errors"
	"fmt"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type SeatResponse struct {
	ID           string     `json:"id" example:"12"`
	Status       string     `json:"status" example:"occupied"`
	State        string     `json:"state" example:"active_booking"`
	OccupantID   *string    `json:"occupant_id,omitempty"`
	OccupantName *string    `json:"occupant_name,omitempty"`
	BookedUntil  *time.Time `json:"booked_until,omitempty"`
	Version      int        `json:"version"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ToSeatResponse は now 時点の実効状態を付けて座席を変換する
func ToSeatResponse(s *seat.Seat, now time.Time) SeatResponse {
	return SeatResponse{
		ID:           s.ID,
		Status:       string(s.Status),
		State:        string(s.EffectiveStateAt(now)),
		OccupantID:   s.OccupantID,
		OccupantName: s.OccupantName,
		BookedUntil:  s.BookedUntil,
		Version:      s.Version,
		UpdatedAt:    s.UpdatedAt,
	}
}

func ToSeatResponses(seats []*seat.Seat, now time.Time) []SeatResponse {
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = ToSeatResponse(s, now)
	}
	return resp
}

type CreateBulkSeatsRequest struct {
	Count int `json:"count" validate:"required,min=1,max=100" example:"10"`
}

// BookingRequest は予約の期限を絶対時刻か時計の時刻で受け取る
type BookingRequest struct {
	Until      *time.Time `json:"until,omitempty"`
	UntilClock string     `json:"until_clock,omitempty" validate:"omitempty,clock" example:"18:30"`
}

var ErrDeadlineRequired = errors.New("until か until_clock のどちらかが必要です")

// Deadline は期限を絶対時刻に解決する
// 時計の時刻は loc における now と同じ日付として扱い、翌日への繰り越しはしない
func (r BookingRequest) Deadline(now time.Time, loc *time.Location) (time.Time, error) {
	if r.Until != nil {
		return *r.Until, nil
	}
	if r.UntilClock == "" {
		return time.Time{}, ErrDeadlineRequired
	}
	if loc == nil {
		loc = time.UTC
	}
	clock, err := time.Parse("15:04", r.UntilClock)
	if err != nil {
		return time.Time{}, fmt.Errorf("時刻の形式が不正です: %q", r.UntilClock)
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}

type OccupantResponse struct {
	ID     string  `json:"id" example:"u1"`
	Name   string  `json:"name" example:"Alice"`
	Role   string  `json:"role" example:"regular"`
	SeatID *string `json:"seat_id"`
}

func ToOccupantResponse(o *occupant.Occupant) OccupantResponse {
	return OccupantResponse{ID: o.ID, Name: o.Name, Role: string(o.Role), SeatID: o.SeatID}
}

// StreamMessage は変更ストリームで送るメッセージ
// 接続直後に snapshot を1回、その後は変更ごとに change を送る
type StreamMessage struct {
	Type   string         `json:"type"`
	Events []change.Event `json:"events"`
}

const (
	StreamSnapshot = "snapshot"
	StreamChange   = "change"
)
