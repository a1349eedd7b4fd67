package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type BoardHandler struct {
	service SeatServiceInterface
}

func NewBoardHandler(s SeatServiceInterface) *BoardHandler {
	return &BoardHandler{service: s}
}

// Get godoc
// @Summary 呼び出し元から見た座席表
// @Description 各座席の表示ラベルと押せるかどうかを返します
// @Tags board
// @Produce json
// @Success 200 {array} view.Tile
// @Router /board [get]
func (h *BoardHandler) Get(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	tiles, err := h.service.Board(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tiles)
}
