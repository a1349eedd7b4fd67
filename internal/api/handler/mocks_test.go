package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/view"
)

var (
	fixedNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	alice    = application.Caller{ID: "u1", Name: "Alice", Role: occupant.RoleRegular}
	admin    = application.Caller{ID: "admin", Name: "Admin", Role: occupant.RoleOperator}
)

// newTestEcho は本番と同じバリデーターとエラーハンドラーを持つEchoを作る
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}

// MockSeatService はSeatServiceInterfaceのモック
type MockSeatService struct {
	mock.Mock
}

func (m *MockSeatService) CreateSeat(ctx context.Context, input application.CreateSeatInput) (*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

func (m *MockSeatService) CreateBulkSeats(ctx context.Context, input application.CreateBulkSeatsInput) ([]*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatService) DeleteSeat(ctx context.Context, input application.DeleteSeatInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockSeatService) GetSeat(ctx context.Context, id string) (*seat.Seat, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

func (m *MockSeatService) ListSeats(ctx context.Context) ([]*seat.Seat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatService) FreshSeats(ctx context.Context) ([]*seat.Seat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*seat.Seat), args.Error(1)
}

func (m *MockSeatService) Board(ctx context.Context, caller application.Caller) ([]view.Tile, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]view.Tile), args.Error(1)
}

func (m *MockSeatService) Location() *time.Location {
	return time.UTC
}

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) CreateBooking(ctx context.Context, input application.CreateBookingInput) (*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

func (m *MockReservationService) ReleaseBooking(ctx context.Context, input application.ReleaseBookingInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockReservationService) ToggleSeat(ctx context.Context, input application.ToggleSeatInput) (*seat.Seat, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.Seat), args.Error(1)
}

// MockOccupantService はOccupantServiceInterfaceのモック
type MockOccupantService struct {
	mock.Mock
}

func (m *MockOccupantService) Register(ctx context.Context, caller application.Caller) (*occupant.Occupant, bool, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*occupant.Occupant), args.Bool(1), args.Error(2)
}

func (m *MockOccupantService) Get(ctx context.Context, id string) (*occupant.Occupant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*occupant.Occupant), args.Error(1)
}

func (m *MockOccupantService) ListRegular(ctx context.Context, caller application.Caller) ([]*occupant.Occupant, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*occupant.Occupant), args.Error(1)
}

// newContext は呼び出し元を設定済みのコンテキストを作る
func newContext(e *echo.Echo, method, path, body string, caller *application.Caller) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != nil {
		middleware.WithCaller(c, *caller)
	}
	return c, rec
}

func strPtr(s string) *string { return &s }

func bookedSeat(id, occupantID, name string, until time.Time) *seat.Seat {
	s := seat.NewSeat(id, fixedNow.Add(-time.Hour))
	s.Status = seat.StatusOccupied
	s.OccupantID = strPtr(occupantID)
	s.OccupantName = strPtr(name)
	s.BookedUntil = &until
	s.Version = 2
	return s
}
