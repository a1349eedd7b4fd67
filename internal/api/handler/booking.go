package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
)

type BookingHandler struct {
	service  ReservationServiceInterface
	location *time.Location
	now      func() time.Time
}

// NewBookingHandler は loc を時計の時刻で指定された期限の解釈に使う
func NewBookingHandler(s ReservationServiceInterface, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{service: s, location: loc, now: time.Now}
}

// Create godoc
// @Summary 座席を予約
// @Description 空席または期限切れの座席を予約します。期限は until (RFC3339) か until_clock (HH:MM) で指定します
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path string true "座席ID"
// @Param request body dto.BookingRequest true "予約期限"
// @Success 201 {object} dto.SeatResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "座席が使用中、または既に座席を持っている"
// @Failure 503 {object} dto.ErrorResponse
// @Router /seats/{id}/booking [post]
func (h *BookingHandler) Create(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	now := h.now()
	until, err := req.Deadline(now, h.location)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	s, err := h.service.CreateBooking(c.Request().Context(), application.CreateBookingInput{
		Caller: caller, SeatID: c.Param("id"), Until: until,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.ToSeatResponse(s, now))
}

// Release godoc
// @Summary 予約を解放
// @Tags bookings
// @Param id path string true "座席ID"
// @Success 204
// @Failure 403 {object} dto.ErrorResponse "予約者ではない"
// @Router /seats/{id}/booking [delete]
func (h *BookingHandler) Release(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	if err := h.service.ReleaseBooking(c.Request().Context(), application.ReleaseBookingInput{
		Caller: caller, SeatID: c.Param("id"),
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
