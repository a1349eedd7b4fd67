package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator はリクエストDTOのタグを検証する
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は JSON のフィールド名で報告するバリデーターを作る
// clock タグは 24 時間表記の HH:MM を受け付ける
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("clock", validateClock)
	return &CustomValidator{validator: v}
}

func validateClock(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	for _, c := range []byte{s[0], s[1], s[3], s[4]} {
		if c < '0' || c > '9' {
			return false
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h < 24 && m < 60
}

// Validate は最初の違反を 400 として返す
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := fe.Field() + " が " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		return echo.NewHTTPError(http.StatusBadRequest, msg+" を満たしていません")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
