package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/view"
)

// SeatServiceInterface は座席サービスのインターフェース
type SeatServiceInterface interface {
	CreateSeat(ctx context.Context, input application.CreateSeatInput) (*seat.Seat, error)
	CreateBulkSeats(ctx context.Context, input application.CreateBulkSeatsInput) ([]*seat.Seat, error)
	DeleteSeat(ctx context.Context, input application.DeleteSeatInput) error
	GetSeat(ctx context.Context, id string) (*seat.Seat, error)
	ListSeats(ctx context.Context) ([]*seat.Seat, error)
	FreshSeats(ctx context.Context) ([]*seat.Seat, error)
	Board(ctx context.Context, caller application.Caller) ([]view.Tile, error)
	Location() *time.Location
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*seat.Seat, error)
	ReleaseBooking(ctx context.Context, input application.ReleaseBookingInput) error
	ToggleSeat(ctx context.Context, input application.ToggleSeatInput) (*seat.Seat, error)
}

// OccupantServiceInterface は利用者サービスのインターフェース
type OccupantServiceInterface interface {
	Register(ctx context.Context, caller application.Caller) (*occupant.Occupant, bool, error)
	Get(ctx context.Context, id string) (*occupant.Occupant, error)
	ListRegular(ctx context.Context, caller application.Caller) ([]*occupant.Occupant, error)
}
