package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
)

func callerOf(c echo.Context) (application.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return application.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
	}
	return caller, nil
}
