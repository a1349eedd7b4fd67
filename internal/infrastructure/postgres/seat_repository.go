package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

const (
	seatInsertColumns = `id, status, occupant_id, occupant_name, booked_until, created_at, updated_at, version`
	seatColumns       = seatInsertColumns + `, generation`
)

type seatRow struct {
	ID           string     `db:"id"`
	Status       string     `db:"status"`
	OccupantID   *string    `db:"occupant_id"`
	OccupantName *string    `db:"occupant_name"`
	BookedUntil  *time.Time `db:"booked_until"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	Version      int        `db:"version"`
	Generation   int64      `db:"generation"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, Status: seat.Status(r.Status),
		OccupantID: r.OccupantID, OccupantName: r.OccupantName, BookedUntil: r.BookedUntil,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version, Generation: r.Generation,
	}
}

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) Create(ctx context.Context, tx transaction.Tx, s *seat.Seat) error {
	stx, err := sqlxTx(tx)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	// 世代はシーケンスから採番され、同じIDで作り直しても再利用されない
	query := `INSERT INTO seats (` + seatInsertColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING generation`
	err = stx.QueryRowxContext(ctx, query, s.ID, string(s.Status), s.OccupantID, s.OccupantName, s.BookedUntil, s.CreatedAt, s.UpdatedAt, s.Version).Scan(&s.Generation)
	if err != nil {
		if isUniqueViolation(err) {
			return seat.ErrSeatAlreadyExists
		}
		return fmt.Errorf("座席作成に失敗: %w", err)
	}
	return nil
}

func (r *SeatRepository) GetByID(ctx context.Context, id string) (*seat.Seat, error) {
	var row seatRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+seatColumns+` FROM seats WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, seat.ErrSeatNotFound
		}
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) List(ctx context.Context) ([]*seat.Seat, error) {
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+seatColumns+` FROM seats`); err != nil {
		return nil, fmt.Errorf("座席一覧の取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

func (r *SeatRepository) ListIDs(ctx context.Context, tx transaction.Tx) ([]string, error) {
	stx, err := sqlxTx(tx)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := stx.SelectContext(ctx, &ids, `SELECT id FROM seats`); err != nil {
		return nil, fmt.Errorf("座席IDの取得に失敗: %w", err)
	}
	return ids, nil
}

func (r *SeatRepository) ListExpiredBookings(ctx context.Context, now time.Time) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE status = 'occupied' AND booked_until IS NOT NULL AND booked_until <= $1`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, now); err != nil {
		return nil, fmt.Errorf("期限切れ予約の取得に失敗: %w", err)
	}
	return toSeats(rows), nil
}

// GetForUpdate は SELECT ... FOR UPDATE で座席行をロックする
func (r *SeatRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*seat.Seat, error) {
	stx, err := sqlxTx(tx)
	if err != nil {
		return nil, err
	}
	var row seatRow
	if err := stx.GetContext(ctx, &row, `SELECT `+seatColumns+` FROM seats WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, seat.ErrSeatNotFound
		}
		return nil, fmt.Errorf("座席ロックに失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SeatRepository) Update(ctx context.Context, tx transaction.Tx, s *seat.Seat) error {
	stx, err := sqlxTx(tx)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	query := `UPDATE seats SET status = $1, occupant_id = $2, occupant_name = $3, booked_until = $4, updated_at = $5, version = version + 1 WHERE id = $6 AND version = $7`
	result, err := stx.ExecContext(ctx, query, string(s.Status), s.OccupantID, s.OccupantName, s.BookedUntil, s.UpdatedAt, s.ID, s.Version)
	if err != nil {
		return fmt.Errorf("座席更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return seat.ErrOptimisticLockConflict
	}
	s.Version++
	return nil
}

func (r *SeatRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	stx, err := sqlxTx(tx)
	if err != nil {
		return err
	}
	result, err := stx.ExecContext(ctx, `DELETE FROM seats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("座席削除に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return seat.ErrSeatNotFound
	}
	return nil
}

func toSeats(rows []seatRow) []*seat.Seat {
	seats := make([]*seat.Seat, len(rows))
	for i := range rows {
		seats[i] = rows[i].toEntity()
	}
	seat.SortByID(seats)
	return seats
}

var _ seat.Repository = (*SeatRepository)(nil)
