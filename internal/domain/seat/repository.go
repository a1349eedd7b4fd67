package seat

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// Create は新しい座席を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, seat *Seat) error

	// GetByID はIDから座席を取得する
	GetByID(ctx context.Context, id string) (*Seat, error)

	// List は全座席をID順に取得する
	List(ctx context.Context) ([]*Seat, error)

	// ListIDs は全座席のIDを取得する（トランザクション必須）
	ListIDs(ctx context.Context, tx transaction.Tx) ([]string, error)

	// ListExpiredBookings は now 時点で期限切れの予約が残っている座席を取得する
	ListExpiredBookings(ctx context.Context, now time.Time) ([]*Seat, error)

	// GetForUpdate は座席を行ロック付きで取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Seat, error)

	// Update は座席を更新する（楽観的ロック、トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, seat *Seat) error

	// Delete は座席を削除する（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id string) error
}
