package sqlite

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// ErrNoTransaction はトランザクション必須の操作にトランザクションが渡されなかったことを表す
var ErrNoTransaction = errors.New("SQLiteのトランザクションが必要です")

// TxWrapper は bun.Tx を transaction.Tx インターフェースでラップする
type TxWrapper struct {
	tx bun.Tx
}

func (t *TxWrapper) Commit() error {
	return t.tx.Commit()
}

func (t *TxWrapper) Rollback() error {
	return t.tx.Rollback()
}

// TxManager は bun.DB を使用したトランザクションマネージャー
// 接続が1本なのでトランザクションは順番に実行される
type TxManager struct {
	db *bun.DB
}

func NewTxManager(db *bun.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &TxWrapper{tx: tx}, nil
}

// UnwrapTx は transaction.Tx から bun.Tx を取り出す
func UnwrapTx(tx transaction.Tx) (bun.Tx, error) {
	if wrapper, ok := tx.(*TxWrapper); ok {
		return wrapper.tx, nil
	}
	return bun.Tx{}, ErrNoTransaction
}

var _ transaction.Manager = (*TxManager)(nil)
