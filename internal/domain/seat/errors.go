package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound           = errors.New("座席が見つかりません")
	ErrSeatUnavailable        = errors.New("座席は現在予約できません")
	ErrSeatOccupied           = errors.New("使用中の座席は削除できません")
	ErrNotOwner               = errors.New("この座席の予約者ではありません")
	ErrInvalidDeadline        = errors.New("予約期限は現在時刻より後である必要があります")
	ErrSeatIDRequired         = errors.New("座席IDは必須です")
	ErrSeatAlreadyExists      = errors.New("同じIDの座席が既に存在します")
	ErrInvalidStatus          = errors.New("座席の状態が不正です")
	ErrInconsistentSeat       = errors.New("座席の予約情報が状態と矛盾しています")
	ErrOptimisticLockConflict = errors.New("楽観的ロックの競合が発生しました")
)
