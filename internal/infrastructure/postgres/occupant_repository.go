package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

const occupantColumns = `id, name, role, seat_id, created_at, updated_at, version`

type occupantRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Role      string    `db:"role"`
	SeatID    *string   `db:"seat_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Version   int       `db:"version"`
}

func (r *occupantRow) toEntity() *occupant.Occupant {
	return &occupant.Occupant{
		ID: r.ID, Name: r.Name, Role: occupant.Role(r.Role), SeatID: r.SeatID,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version,
	}
}

type OccupantRepository struct{ db *sqlx.DB }

func NewOccupantRepository(db *sqlx.DB) *OccupantRepository { return &OccupantRepository{db: db} }

func (r *OccupantRepository) Create(ctx context.Context, o *occupant.Occupant) error {
	if err := o.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO occupants (` + occupantColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, o.ID, o.Name, string(o.Role), o.SeatID, o.CreatedAt, o.UpdatedAt, o.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return occupant.ErrOccupantAlreadyExists
		}
		return fmt.Errorf("利用者登録に失敗: %w", err)
	}
	return nil
}

func (r *OccupantRepository) GetByID(ctx context.Context, id string) (*occupant.Occupant, error) {
	var row occupantRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+occupantColumns+` FROM occupants WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, occupant.ErrOccupantNotFound
		}
		return nil, fmt.Errorf("利用者取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *OccupantRepository) List(ctx context.Context) ([]*occupant.Occupant, error) {
	var rows []occupantRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+occupantColumns+` FROM occupants ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("利用者一覧の取得に失敗: %w", err)
	}
	occupants := make([]*occupant.Occupant, len(rows))
	for i := range rows {
		occupants[i] = rows[i].toEntity()
	}
	return occupants, nil
}

func (r *OccupantRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*occupant.Occupant, error) {
	stx, err := sqlxTx(tx)
	if err != nil {
		return nil, err
	}
	var row occupantRow
	if err := stx.GetContext(ctx, &row, `SELECT `+occupantColumns+` FROM occupants WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, occupant.ErrOccupantNotFound
		}
		return nil, fmt.Errorf("利用者ロックに失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *OccupantRepository) Update(ctx context.Context, tx transaction.Tx, o *occupant.Occupant) error {
	stx, err := sqlxTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE occupants SET name = $1, seat_id = $2, updated_at = $3, version = version + 1 WHERE id = $4 AND version = $5`
	result, err := stx.ExecContext(ctx, query, o.Name, o.SeatID, o.UpdatedAt, o.ID, o.Version)
	if err != nil {
		return fmt.Errorf("利用者更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return occupant.ErrOptimisticLockConflict
	}
	o.Version++
	return nil
}

var _ occupant.Repository = (*OccupantRepository)(nil)
