package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse = dto.ErrorResponse

// 業務エラーとHTTPステータス、reason の対応
var domainErrors = []struct {
	err    error
	status int
	reason string
}{
	{seat.ErrSeatUnavailable, http.StatusConflict, "seat_unavailable"},
	{occupant.ErrAlreadyHoldingSeat, http.StatusConflict, "already_holding_seat"},
	{seat.ErrSeatOccupied, http.StatusConflict, "seat_occupied"},
	{seat.ErrInvalidDeadline, http.StatusBadRequest, "invalid_deadline"},
	{application.ErrInvalidCount, http.StatusBadRequest, "invalid_count"},
	{occupant.ErrOccupantIDRequired, http.StatusBadRequest, "occupant_id_required"},
	{occupant.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
	{seat.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{application.ErrNotAuthorized, http.StatusForbidden, "not_authorized"},
	{seat.ErrSeatNotFound, http.StatusNotFound, "seat_not_found"},
	{occupant.ErrOccupantNotFound, http.StatusNotFound, "occupant_not_found"},
}

// StatusFor はエラーに対応するステータスと reason を返す
func StatusFor(err error) (int, string) {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.status, d.reason
		}
	}
	if errors.Is(err, application.ErrOperationFailed) {
		return http.StatusServiceUnavailable, "operation_failed"
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, ""
	}
	return http.StatusInternalServerError, ""
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, reason := StatusFor(err)
	message := "内部サーバーエラー"
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he) && reason == "":
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	case errors.Is(err, application.ErrOperationFailed):
		message = application.ErrOperationFailed.Error()
	case code < 500:
		message = err.Error()
	}

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.FromContext(c.Request().Context()).Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	resp := ErrorResponse{
		Error:     message,
		Code:      code,
		Reason:    reason,
		Retryable: errors.Is(err, application.ErrOperationFailed),
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		logger.FromContext(c.Request().Context()).Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
