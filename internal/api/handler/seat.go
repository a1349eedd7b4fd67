package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
)

type SeatHandler struct {
	service      SeatServiceInterface
	reservations ReservationServiceInterface
	now          func() time.Time
}

func NewSeatHandler(s SeatServiceInterface, r ReservationServiceInterface) *SeatHandler {
	return &SeatHandler{service: s, reservations: r, now: time.Now}
}

// List godoc
// @Summary 座席一覧を取得
// @Description 全座席を実効状態付きでID順に返します
// @Tags seats
// @Produce json
// @Success 200 {array} dto.SeatResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /seats [get]
func (h *SeatHandler) List(c echo.Context) error {
	seats, err := h.service.ListSeats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToSeatResponses(seats, h.now()))
}

// GetByID godoc
// @Summary 座席を取得
// @Tags seats
// @Produce json
// @Param id path string true "座席ID"
// @Success 200 {object} dto.SeatResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /seats/{id} [get]
func (h *SeatHandler) GetByID(c echo.Context) error {
	s, err := h.service.GetSeat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToSeatResponse(s, h.now()))
}

// Create godoc
// @Summary 座席を作成（運用者）
// @Description 既存IDの最大値+1のIDで空席を作成します
// @Tags seats
// @Produce json
// @Success 201 {object} dto.SeatResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /seats [post]
func (h *SeatHandler) Create(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	s, err := h.service.CreateSeat(c.Request().Context(), application.CreateSeatInput{Caller: caller})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.ToSeatResponse(s, h.now()))
}

// CreateBulk godoc
// @Summary 座席を一括作成（運用者）
// @Tags seats
// @Accept json
// @Produce json
// @Param request body dto.CreateBulkSeatsRequest true "作成数"
// @Success 201 {array} dto.SeatResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /seats/bulk [post]
func (h *SeatHandler) CreateBulk(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	var req dto.CreateBulkSeatsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	seats, err := h.service.CreateBulkSeats(c.Request().Context(), application.CreateBulkSeatsInput{
		Caller: caller, Count: req.Count,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.ToSeatResponses(seats, h.now()))
}

// Delete godoc
// @Summary 座席を削除（運用者）
// @Description 空席のみ削除できます
// @Tags seats
// @Param id path string true "座席ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "使用中の座席"
// @Router /seats/{id} [delete]
func (h *SeatHandler) Delete(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteSeat(c.Request().Context(), application.DeleteSeatInput{
		Caller: caller, SeatID: c.Param("id"),
	}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Toggle godoc
// @Summary 座席の空席と使用中を切り替える（運用者）
// @Description 予約中の座席は空席になり、予約者の座席も外れます
// @Tags seats
// @Produce json
// @Param id path string true "座席ID"
// @Success 200 {object} dto.SeatResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /seats/{id}/toggle [post]
func (h *SeatHandler) Toggle(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	s, err := h.reservations.ToggleSeat(c.Request().Context(), application.ToggleSeatInput{
		Caller: caller, SeatID: c.Param("id"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToSeatResponse(s, h.now()))
}
