package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// RequestLogger はリクエストの構造化ログを出力するミドルウェア
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			req := c.Request()
			res := c.Response()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = res.Header().Get(echo.HeaderXRequestID)
			}
			// 後続の処理ログにもリクエストIDを付ける
			scoped := logger.With(logger.RequestID(requestID))
			req = req.WithContext(logger.WithContext(req.Context(), scoped))
			c.SetRequest(req)

			err := next(c)
			if err != nil {
				// ステータスを確定させてから記録する
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", res.Status),
				zap.Int64("size", res.Size),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if caller, ok := CallerFrom(c); ok {
				fields = append(fields, zap.String("caller_id", caller.ID))
			}

			switch {
			case res.Status >= 500:
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				scoped.Error("server error", fields...)
			case res.Status >= 400:
				scoped.Warn("client error", fields...)
			default:
				scoped.Info("request completed", fields...)
			}

			return nil
		}
	}
}
