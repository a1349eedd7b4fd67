package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

type OccupantRepository struct{ db *bun.DB }

func NewOccupantRepository(db *bun.DB) *OccupantRepository { return &OccupantRepository{db: db} }

func (r *OccupantRepository) Create(ctx context.Context, o *occupant.Occupant) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if _, err := r.db.NewInsert().Model(occupantModelFrom(o)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return occupant.ErrOccupantAlreadyExists
		}
		return fmt.Errorf("利用者登録に失敗: %w", err)
	}
	return nil
}

func (r *OccupantRepository) GetByID(ctx context.Context, id string) (*occupant.Occupant, error) {
	return r.get(ctx, r.db, id)
}

func (r *OccupantRepository) List(ctx context.Context) ([]*occupant.Occupant, error) {
	var models []occupantModel
	if err := r.db.NewSelect().Model(&models).Order("name ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("利用者一覧の取得に失敗: %w", err)
	}
	occupants := make([]*occupant.Occupant, len(models))
	for i := range models {
		occupants[i] = models[i].toEntity()
	}
	return occupants, nil
}

func (r *OccupantRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*occupant.Occupant, error) {
	bunTx, err := UnwrapTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, bunTx, id)
}

func (r *OccupantRepository) Update(ctx context.Context, tx transaction.Tx, o *occupant.Occupant) error {
	bunTx, err := UnwrapTx(tx)
	if err != nil {
		return err
	}
	m := occupantModelFrom(o)
	m.Version = o.Version + 1
	result, err := bunTx.NewUpdate().Model(m).
		Column("name", "seat_id", "updated_at", "version").
		WherePK().Where("version = ?", o.Version).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("利用者更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return occupant.ErrOptimisticLockConflict
	}
	o.Version = m.Version
	return nil
}

func (r *OccupantRepository) get(ctx context.Context, db bun.IDB, id string) (*occupant.Occupant, error) {
	var m occupantModel
	if err := db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, occupant.ErrOccupantNotFound
		}
		return nil, fmt.Errorf("利用者取得に失敗: %w", err)
	}
	return m.toEntity(), nil
}

var _ occupant.Repository = (*OccupantRepository)(nil)
