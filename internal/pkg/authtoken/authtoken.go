// Package authtoken は利用者の身元を表すトークンを発行・検証する
// トークンの発行は外部の認証基盤の役割で、ここでは開発と運用ツール向けに最低限を提供する
package authtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
)

var (
	ErrInvalidToken   = errors.New("トークンが不正です")
	ErrMissingSubject = errors.New("トークンに利用者IDがありません")
	ErrSecretRequired = errors.New("署名用のシークレットが設定されていません")
)

// Claims はトークンに含める利用者情報
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity はトークンから取り出した利用者
type Identity struct {
	ID   string
	Name string
	Role occupant.Role
}

// Signer は HS256 でトークンを署名・検証する
type Signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewSigner(secret, issuer string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue は利用者のトークンを発行する。ttl が0以下なら期限なし
func (s *Signer) Issue(id Identity, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSecretRequired
	}
	if id.ID == "" {
		return "", ErrMissingSubject
	}
	role := id.Role
	if role == "" {
		role = occupant.RoleRegular
	}

	now := s.now()
	claims := Claims{
		Name: id.Name,
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id.ID,
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Parse はトークンを検証して利用者を返す
func (s *Signer) Parse(raw string) (Identity, error) {
	if len(s.secret) == 0 {
		return Identity{}, ErrSecretRequired
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, ErrMissingSubject
	}

	role, err := occupant.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Identity{ID: claims.Subject, Name: claims.Name, Role: role}, nil
}

// Peek は署名を検証せずにトークンの利用者を読む
// クライアントが自分の身元を表示に使うためのもので、認可には使わない
func Peek(raw string) (Identity, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, ErrMissingSubject
	}
	role, err := occupant.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return Identity{ID: claims.Subject, Name: claims.Name, Role: role}, nil
}
