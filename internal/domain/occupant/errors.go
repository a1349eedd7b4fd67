package occupant

import "errors"

// Occupant ドメインのエラー定義
var (
	ErrOccupantNotFound       = errors.New("利用者が見つかりません")
	ErrOccupantAlreadyExists  = errors.New("利用者は既に登録されています")
	ErrAlreadyHoldingSeat     = errors.New("既に別の座席を予約しています")
	ErrOccupantIDRequired     = errors.New("利用者IDは必須です")
	ErrInvalidRole            = errors.New("利用者の権限が不正です")
	ErrOptimisticLockConflict = errors.New("楽観的ロックの競合が発生しました")
)
