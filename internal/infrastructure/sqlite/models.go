package sqlite

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

type seatModel struct {
	bun.BaseModel `bun:"table:seats"`

	ID           string     `bun:"id,pk"`
	Status       string     `bun:"status,notnull"`
	OccupantID   *string    `bun:"occupant_id,unique"`
	OccupantName *string    `bun:"occupant_name"`
	BookedUntil  *time.Time `bun:"booked_until"`
	CreatedAt    time.Time  `bun:"created_at,notnull"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull"`
	Version      int        `bun:"version,notnull"`
	Generation   int64      `bun:"generation,notnull"`
}

// seatGenerationModel は座席の世代を採番する
// AUTOINCREMENT なので削除済みの値は再利用されない
type seatGenerationModel struct {
	bun.BaseModel `bun:"table:seat_generations"`

	ID int64 `bun:"id,pk,autoincrement"`
}

func seatModelFrom(s *seat.Seat) *seatModel {
	m := &seatModel{
		ID: s.ID, Status: string(s.Status),
		OccupantID: s.OccupantID, OccupantName: s.OccupantName,
		CreatedAt: s.CreatedAt.UTC(), UpdatedAt: s.UpdatedAt.UTC(), Version: s.Version, Generation: s.Generation,
	}
	if s.BookedUntil != nil {
		u := s.BookedUntil.UTC()
		m.BookedUntil = &u
	}
	return m
}

func (m *seatModel) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: m.ID, Status: seat.Status(m.Status),
		OccupantID: m.OccupantID, OccupantName: m.OccupantName, BookedUntil: m.BookedUntil,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version, Generation: m.Generation,
	}
}

type occupantModel struct {
	bun.BaseModel `bun:"table:occupants"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Role      string    `bun:"role,notnull"`
	SeatID    *string   `bun:"seat_id,unique"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
	Version   int       `bun:"version,notnull"`
}

func occupantModelFrom(o *occupant.Occupant) *occupantModel {
	return &occupantModel{
		ID: o.ID, Name: o.Name, Role: string(o.Role), SeatID: o.SeatID,
		CreatedAt: o.CreatedAt.UTC(), UpdatedAt: o.UpdatedAt.UTC(), Version: o.Version,
	}
}

func (m *occupantModel) toEntity() *occupant.Occupant {
	return &occupant.Occupant{
		ID: m.ID, Name: m.Name, Role: occupant.Role(m.Role), SeatID: m.SeatID,
		CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version,
	}
}
