package seat

import "time"

// EffectiveState は時刻を加味した座席の実効状態
type EffectiveState string

const (
	StateVacant         EffectiveState = "vacant"
	StateActiveBooking  EffectiveState = "active_booking"
	StateExpiredBooking EffectiveState = "expired_booking"
	StateForcedOccupied EffectiveState = "forced_occupied"
)

// IsClaimable は新しい予約を受け付けられる状態かを返す
func (st EffectiveState) IsClaimable() bool {
	return st == StateVacant || st == StateExpiredBooking
}

// EffectiveStateAt は now 時点での座席の実効状態を返す
// 期限ちょうどの時刻は期限切れとして扱う
func EffectiveStateAt(s *Seat, now time.Time) EffectiveState {
	if s.Status != StatusOccupied {
		return StateVacant
	}
	if s.BookedUntil == nil {
		return StateForcedOccupied
	}
	if now.Before(*s.BookedUntil) {
		return StateActiveBooking
	}
	return StateExpiredBooking
}

// EffectiveStateAt は now 時点での実効状態を返す
func (s *Seat) EffectiveStateAt(now time.Time) EffectiveState {
	return EffectiveStateAt(s, now)
}
