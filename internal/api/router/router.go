// Package router はHTTPルーティングとミドルウェアを組み立てる
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

// Deps はルーターが使うサービスと設定
type Deps struct {
	Seats        handler.SeatServiceInterface
	Reservations handler.ReservationServiceInterface
	Occupants    handler.OccupantServiceInterface
	Hub          handler.Subscriber
	Tokens       middleware.TokenParser
	Location     *time.Location
	Metrics      *metrics.Metrics // nil なら /metrics を公開しない
	MetricsUser  string
	MetricsPass  string
	HealthChecks []handler.Check
}

// New はAPIサーバーのEchoを作成する
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e)
	if d.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(d.Metrics, "/metrics", "/api/v1/stream"))
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(d.MetricsUser, d.MetricsPass))
	}

	seatHandler := handler.NewSeatHandler(d.Seats, d.Reservations)
	bookingHandler := handler.NewBookingHandler(d.Reservations, d.Location)
	occupantHandler := handler.NewOccupantHandler(d.Occupants)
	boardHandler := handler.NewBoardHandler(d.Seats)
	streamHandler := handler.NewStreamHandler(d.Seats, d.Occupants, d.Hub)
	healthHandler := handler.NewHealthHandler(d.HealthChecks...)

	e.GET("/health", healthHandler.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	authed := v1.Group("", middleware.JWTAuth(d.Tokens))
	operator := middleware.RequireOperator()

	authed.GET("/seats", seatHandler.List)
	authed.GET("/seats/:id", seatHandler.GetByID)
	authed.POST("/seats", seatHandler.Create, operator)
	authed.POST("/seats/bulk", seatHandler.CreateBulk, operator)
	authed.DELETE("/seats/:id", seatHandler.Delete, operator)
	authed.POST("/seats/:id/toggle", seatHandler.Toggle, operator)

	authed.POST("/seats/:id/booking", bookingHandler.Create)
	authed.DELETE("/seats/:id/booking", bookingHandler.Release)

	authed.POST("/occupants/me", occupantHandler.Register)
	authed.GET("/occupants/me", occupantHandler.Me)
	authed.GET("/occupants", occupantHandler.List, operator)

	authed.GET("/board", boardHandler.Get)
	authed.GET("/stream", streamHandler.Stream)

	return e
}
