package transaction

import (
	"context"
	"fmt"
)

// Tx は座席と利用者の更新をまとめる単位
// 実体はストアごとに異なり、リポジトリだけが中身を取り出せる
type Tx interface {
	Commit() error
	Rollback() error
}

// Manager はストアのトランザクションを開始する
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Run は fn をひとつのトランザクションで実行する
// fn がエラーを返した場合とパニックした場合は何も書き込まれない
func Run(ctx context.Context, m Manager, fn func(tx Tx) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	committed = true
	return nil
}
