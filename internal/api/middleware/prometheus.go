package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

// ルートに一致しなかったリクエストのパスラベル
const unmatchedPath = "unmatched"

// PrometheusMiddleware はルートのパターン単位でリクエスト数とレイテンシを記録する
// skip に挙げたパターン（/metrics や長時間接続のストリーム）は記録しない
func PrometheusMiddleware(m *metrics.Metrics, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if _, ok := skipped[path]; ok {
				return next(c)
			}
			if path == "" {
				path = unmatchedPath
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				// エラーハンドラーより先に呼ばれるので対応表から求める
				status, _ = api.StatusFor(err)
			}

			method := c.Request().Method
			m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
