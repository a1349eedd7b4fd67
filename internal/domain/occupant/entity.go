package occupant

import (
	"strings"
	"time"
)

// Role は利用者の権限
type Role string

const (
	RoleRegular  Role = "regular"
	RoleOperator Role = "operator"
)

// ParseRole は文字列から Role を得る
// "user" は一般利用者、"admin" は運用者の別名として扱う
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "regular", "user", "":
		return RoleRegular, nil
	case "operator", "admin":
		return RoleOperator, nil
	}
	return "", ErrInvalidRole
}

// Occupant は座席を利用する人を表す
type Occupant struct {
	ID        string
	Name      string
	Role      Role
	SeatID    *string // 予約中の座席
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int // 楽観的ロック用
}

// NewOccupant は座席を持たない利用者を作成する
func NewOccupant(id, name string, role Role, now time.Time) *Occupant {
	now = now.UTC().Truncate(time.Millisecond)
	return &Occupant{
		ID:        id,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// IsOperator は運用者かを返す
func (o *Occupant) IsOperator() bool {
	return o.Role == RoleOperator
}

// HoldsSeat は座席を保持しているかを返す
func (o *Occupant) HoldsSeat() bool {
	return o.SeatID != nil
}

// HoldsSeatID は指定した座席を保持しているかを返す
func (o *Occupant) HoldsSeatID(seatID string) bool {
	return o.SeatID != nil && *o.SeatID == seatID
}

// AssignSeat は座席を割り当てる
// 一人が持てる座席は一つだけ
func (o *Occupant) AssignSeat(seatID string, now time.Time) error {
	if o.HoldsSeat() {
		return ErrAlreadyHoldingSeat
	}
	o.SeatID = &seatID
	o.UpdatedAt = now
	return nil
}

// ClearSeat は座席の割り当てを外す
func (o *Occupant) ClearSeat(now time.Time) {
	o.SeatID = nil
	o.UpdatedAt = now
}

// Validate は利用者の検証を行う
func (o *Occupant) Validate() error {
	if o.ID == "" {
		return ErrOccupantIDRequired
	}
	if o.Role != RoleRegular && o.Role != RoleOperator {
		return ErrInvalidRole
	}
	return nil
}
