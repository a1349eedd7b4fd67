package middleware

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const metricsRealm = "seat-metrics"

// MetricsBasicAuth は /metrics を Basic 認証で保護する
// ユーザーとパスワードのどちらかが空なら素通しにする
func MetricsBasicAuth(user, password string) echo.MiddlewareFunc {
	if user == "" || password == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	wantUser, wantPass := []byte(user), []byte(password)

	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: metricsRealm,
		Validator: func(u, p string, _ echo.Context) (bool, error) {
			// 両方を必ず比較する
			userOK := subtle.ConstantTimeCompare([]byte(u), wantUser)
			passOK := subtle.ConstantTimeCompare([]byte(p), wantPass)
			return userOK&passOK == 1, nil
		},
	})
}
