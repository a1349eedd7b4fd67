package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

type SeatRepository struct{ db *bun.DB }

func NewSeatRepository(db *bun.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) Create(ctx context.Context, tx transaction.Tx, s *seat.Seat) error {
	bunTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	gen := &seatGenerationModel{}
	if _, err := bunTx.NewInsert().Model(gen).Exec(ctx); err != nil {
		return fmt.Errorf("座席の世代採番に失敗: %w", err)
	}
	s.Generation = gen.ID
	if _, err := bunTx.NewInsert().Model(seatModelFrom(s)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return seat.ErrSeatAlreadyExists
		}
		return fmt.Errorf("座席作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetByID(ctx context.Context, id string) (*seat.Seat, error) {
	return r.get(ctx, r.db, id)
}

func (r *SeatRepository) List(ctx context.Context) ([]*seat.Seat, error) {
	var models []seatModel
	if err := r.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, fmt.Errorf("座席一覧の取得に失敗: %w", err)
	}
	return toSeats(models), nil
}

func (r *SeatRepository) ListIDs(ctx context.Context, tx transaction.Tx) ([]string, error) {
	bunTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := bunTx.NewSelect().Model((*seatModel)(nil)).Column("id").Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("座席IDの取得に失敗: %w", err)
	}
	return ids, nil
}

// ListExpiredBookings は期限付きの使用中座席を読み出し、期限の判定はアプリ側で行う
func (r *SeatRepository) ListExpiredBookings(ctx context.Context, now time.Time) ([]*seat.Seat, error) {
	var models []seatModel
	err := r.db.NewSelect().Model(&models).
		Where("status = ?", string(seat.StatusOccupied)).
		Where("booked_until IS NOT NULL").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("期限切れ予約の取得に失敗: %w", err)
	}
	expired := make([]*seat.Seat, 0, len(models))
	for _, s := range toSeats(models) {
		if s.EffectiveStateAt(now) == seat.StateExpiredBooking {
			expired = append(expired, s)
		}
	}
	return expired, nil
}

// GetForUpdate はトランザクション内で座席を読む
// SQLiteは書き込みが直列化されるので行ロックは不要
func (r *SeatRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*seat.Seat, error) {
	bunTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, bunTx, id)
}

func (r *SeatRepository) Update(ctx context.Context, tx transaction.Tx, s *seat.Seat) error {
	bunTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m := seatModelFrom(s)
	m.Version = s.Version + 1
	result, err := bunTx.NewUpdate().Model(m).WherePK().Where("version = ?", s.Version).Exec(ctx)
	if err != nil {
		return fmt.Errorf("座席更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return seat.ErrOptimisticLockConflict
	}
	s.Version = m.Version
	return nil
}

func (r *SeatRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	bunTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	result, err := bunTx.NewDelete().Model((*seatModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("座席削除に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return seat.ErrSeatNotFound
	}
	return nil
}

func (r *SeatRepository) get(ctx context.Context, db bun.IDB, id string) (*seat.Seat, error) {
	var m seatModel
	if err := db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, seat.ErrSeatNotFound
		}
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return m.toEntity(), nil
}

func toSeats(models []seatModel) []*seat.Seat {
	seats := make([]*seat.Seat, len(models))
	for i := range models {
		seats[i] = models[i].toEntity()
	}
	seat.SortByID(seats)
	return seats
}

var _ seat.Repository = (*SeatRepository)(nil)
