package application

import (
	"errors"
	"fmt"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

var (
	ErrNotAuthorized   = errors.New("この操作を行う権限がありません")
	ErrOperationFailed = errors.New("操作に失敗しました。再試行してください")
	ErrInvalidCount    = errors.New("作成数は1以上100以下である必要があります")
)

// OperationError はストア障害などで操作が完了しなかったことを表す
// 何も書き込まれていないので再試行できる
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// Is は ErrOperationFailed との比較で true を返す
func (e *OperationError) Is(target error) bool {
	return target == ErrOperationFailed
}

// preconditionErrors は呼び出し側にそのまま返す業務エラー
var preconditionErrors = []error{
	seat.ErrSeatNotFound,
	seat.ErrSeatUnavailable,
	seat.ErrSeatOccupied,
	seat.ErrNotOwner,
	seat.ErrInvalidDeadline,
	occupant.ErrOccupantNotFound,
	occupant.ErrAlreadyHoldingSeat,
	occupant.ErrInvalidRole,
	occupant.ErrOccupantIDRequired,
	ErrNotAuthorized,
	ErrInvalidCount,
}

// IsPrecondition は業務上の前提条件違反かを返す
func IsPrecondition(err error) bool {
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify は前提条件違反をそのまま返し、それ以外を OperationError で包む
func classify(op string, err error) error {
	if err == nil || IsPrecondition(err) {
		return err
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsPrecondition(err):
		return "rejected"
	default:
		return "error"
	}
}
