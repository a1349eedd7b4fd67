package occupant

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// Repository は利用者リポジトリのインターフェース
type Repository interface {
	// Create は利用者を登録する
	Create(ctx context.Context, occupant *Occupant) error

	// GetByID はIDから利用者を取得する
	GetByID(ctx context.Context, id string) (*Occupant, error)

	// List は利用者を名前順に取得する
	List(ctx context.Context) ([]*Occupant, error)

	// GetForUpdate は利用者を行ロック付きで取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Occupant, error)

	// Update は利用者を更新する（楽観的ロック、トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, occupant *Occupant) error
}
