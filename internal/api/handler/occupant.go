package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
)

type OccupantHandler struct {
	service OccupantServiceInterface
}

func NewOccupantHandler(s OccupantServiceInterface) *OccupantHandler {
	return &OccupantHandler{service: s}
}

// Register godoc
// @Summary 呼び出し元を利用者として登録
// @Description 登録済みなら既存の利用者を返します
// @Tags occupants
// @Produce json
// @Success 200 {object} dto.OccupantResponse "登録済み"
// @Success 201 {object} dto.OccupantResponse
// @Router /occupants/me [post]
func (h *OccupantHandler) Register(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	o, created, err := h.service.Register(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, dto.ToOccupantResponse(o))
}

// Me godoc
// @Summary 呼び出し元の利用者情報
// @Tags occupants
// @Produce json
// @Success 200 {object} dto.OccupantResponse
// @Failure 404 {object} dto.ErrorResponse "未登録"
// @Router /occupants/me [get]
func (h *OccupantHandler) Me(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	o, err := h.service.Get(c.Request().Context(), caller.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.ToOccupantResponse(o))
}

// List godoc
// @Summary 一般利用者の一覧（運用者）
// @Tags occupants
// @Produce json
// @Success 200 {array} dto.OccupantResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /occupants [get]
func (h *OccupantHandler) List(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListRegular(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	resp := make([]dto.OccupantResponse, len(list))
	for i, o := range list {
		resp[i] = dto.ToOccupantResponse(o)
	}
	return c.JSON(http.StatusOK, resp)
}
