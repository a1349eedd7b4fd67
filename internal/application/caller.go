package application

import "github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"

// Caller は操作を行う利用者
// 認証基盤が発行したトークンから得た値をそのまま渡す
type Caller struct {
	ID   string
	Name string
	Role occupant.Role
}

// IsOperator は運用者かを返す
func (c Caller) IsOperator() bool {
	return c.Role == occupant.RoleOperator
}
