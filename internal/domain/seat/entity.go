package seat

import "time"

// Status は保存される座席の状態を表す
// 予約の期限切れは保存状態ではなく EffectiveStateAt で判定する
type Status string

const (
	StatusVacant   Status = "vacant"
	StatusOccupied Status = "occupied"
)

// Seat は座席エンティティを表す
type Seat struct {
	ID           string
	Status       Status
	OccupantID   *string
	OccupantName *string // 表示用に非正規化した利用者名
	BookedUntil  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int // 楽観的ロック用
	// 保存時にストアが採番する世代
	// 同じIDで作り直された座席は必ず前の座席より大きい値を持つ
	Generation int64
}

// NewSeat は空席の座席を作成する
func NewSeat(id string, now time.Time) *Seat {
	now = now.UTC().Truncate(time.Millisecond)
	return &Seat{
		ID:        id,
		Status:    StatusVacant,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// IsVacant は保存状態が空席かを返す
func (s *Seat) IsVacant() bool {
	return s.Status == StatusVacant
}

// IsHeldBy は指定した利用者がこの座席を予約しているかを返す
// 期限切れでも回収されるまでは予約者のまま
func (s *Seat) IsHeldBy(occupantID string) bool {
	return s.OccupantID != nil && *s.OccupantID == occupantID
}

// Book は座席を利用者の予約状態にする
// 期限は now より後でなければならない
func (s *Seat) Book(occupantID, occupantName string, until, now time.Time) error {
	if !until.After(now) {
		return ErrInvalidDeadline
	}
	if !s.EffectiveStateAt(now).IsClaimable() {
		return ErrSeatUnavailable
	}
	u := until.UTC()
	s.Status = StatusOccupied
	s.OccupantID = &occupantID
	s.OccupantName = &occupantName
	s.BookedUntil = &u
	s.UpdatedAt = now
	return nil
}

// Vacate は座席を空席に戻し予約情報を消す
func (s *Seat) Vacate(now time.Time) {
	s.Status = StatusVacant
	s.clearBooking()
	s.UpdatedAt = now
}

// ForceOccupy は期限なしの使用中にする
// 残っている予約情報は破棄される
func (s *Seat) ForceOccupy(now time.Time) {
	s.Status = StatusOccupied
	s.clearBooking()
	s.UpdatedAt = now
}

// Toggle は運用者による空席と使用中の切り替え
// 予約中の座席は空席になる
func (s *Seat) Toggle(now time.Time) {
	if s.IsVacant() {
		s.ForceOccupy(now)
		return
	}
	s.Vacate(now)
}

func (s *Seat) clearBooking() {
	s.OccupantID = nil
	s.OccupantName = nil
	s.BookedUntil = nil
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.ID == "" {
		return ErrSeatIDRequired
	}
	switch s.Status {
	case StatusVacant:
		if s.OccupantID != nil || s.BookedUntil != nil {
			return ErrInconsistentSeat
		}
	case StatusOccupied:
		// 予約者と期限は両方あるか両方ないか
		if (s.OccupantID == nil) != (s.BookedUntil == nil) {
			return ErrInconsistentSeat
		}
	default:
		return ErrInvalidStatus
	}
	return nil
}
