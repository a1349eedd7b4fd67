package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/authtoken"
)

const callerKey = "caller"

// TokenParser はトークンから利用者を取り出す
type TokenParser interface {
	Parse(raw string) (authtoken.Identity, error)
}

// JWTAuth は Bearer トークンを検証し、呼び出し元をコンテキストに入れる
// ブラウザの WebSocket はヘッダーを付けられないので access_token クエリも受け付ける
func JWTAuth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
			}
			id, err := parser.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが不正です")
			}
			c.Set(callerKey, application.Caller{ID: id.ID, Name: id.Name, Role: id.Role})
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.QueryParam("access_token")
}

// CallerFrom は JWTAuth が設定した呼び出し元を返す
func CallerFrom(c echo.Context) (application.Caller, bool) {
	caller, ok := c.Get(callerKey).(application.Caller)
	return caller, ok
}

// WithCaller は呼び出し元をコンテキストに設定する
func WithCaller(c echo.Context, caller application.Caller) {
	c.Set(callerKey, caller)
}

// RequireOperator は運用者以外を 403 で拒否する
func RequireOperator() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが必要です")
			}
			if !caller.IsOperator() {
				return application.ErrNotAuthorized
			}
			return next(c)
		}
	}
}
