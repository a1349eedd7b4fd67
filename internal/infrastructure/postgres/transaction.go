package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

var ErrNoTransaction = errors.New("PostgreSQLのトランザクションが必要です")

// pgTx は transaction.Tx の PostgreSQL 実装
type pgTx struct {
	*sqlx.Tx
}

// TxManager は READ COMMITTED でトランザクションを開始する
// 座席と利用者の整合性は行ロック（FOR UPDATE）で守る
type TxManager struct {
	db   *sqlx.DB
	opts *sql.TxOptions
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{
		db:   db,
		opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
}

func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, m.opts)
	if err != nil {
		return nil, err
	}
	return pgTx{Tx: tx}, nil
}

// sqlxTx はリポジトリが受け取った transaction.Tx から sqlx.Tx を取り出す
func sqlxTx(tx transaction.Tx) (*sqlx.Tx, error) {
	if t, ok := tx.(pgTx); ok && t.Tx != nil {
		return t.Tx, nil
	}
	return nil, ErrNoTransaction
}

var _ transaction.Manager = (*TxManager)(nil)
