package authtoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
)

func TestSigner(t *testing.T) {
	signer := NewSigner("test-secret", "seat-reservation")

	t.Run("発行したトークンを検証できる", func(t *testing.T) {
		raw, err := signer.Issue(Identity{ID: "u1", Name: "Alice", Role: occupant.RoleRegular}, time.Hour)
		require.NoError(t, err)

		id, err := signer.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "u1", id.ID)
		assert.Equal(t, "Alice", id.Name)
		assert.Equal(t, occupant.RoleRegular, id.Role)
	})

	t.Run("ロール未指定は一般利用者", func(t *testing.T) {
		raw, err := signer.Issue(Identity{ID: "u2", Name: "Bob"}, 0)
		require.NoError(t, err)

		id, err := signer.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, occupant.RoleRegular, id.Role)
	})

	t.Run("運用者", func(t *testing.T) {
		raw, err := signer.Issue(Identity{ID: "admin", Name: "Admin", Role: occupant.RoleOperator}, time.Hour)
		require.NoError(t, err)

		id, err := signer.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, occupant.RoleOperator, id.Role)
	})

	t.Run("異常系: 別のシークレットで署名されたトークン", func(t *testing.T) {
		raw, err := NewSigner("other-secret", "seat-reservation").Issue(Identity{ID: "u1"}, time.Hour)
		require.NoError(t, err)

		_, err = signer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("異常系: 発行者が違う", func(t *testing.T) {
		raw, err := NewSigner("test-secret", "someone-else").Issue(Identity{ID: "u1"}, time.Hour)
		require.NoError(t, err)

		_, err = signer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("異常系: 期限切れ", func(t *testing.T) {
		past := NewSigner("test-secret", "seat-reservation")
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		raw, err := past.Issue(Identity{ID: "u1"}, time.Hour)
		require.NoError(t, err)

		_, err = signer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("異常系: HS256以外の署名方式", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "seat-reservation"},
		})
		raw, err := tok.SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = signer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("異常系: 不明なロール", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			Role:             "superuser",
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "seat-reservation"},
		})
		raw, err := tok.SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = signer.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("異常系: 利用者IDなしでは発行できない", func(t *testing.T) {
		_, err := signer.Issue(Identity{Name: "nobody"}, time.Hour)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})

	t.Run("異常系: シークレット未設定", func(t *testing.T) {
		_, err := NewSigner("", "").Issue(Identity{ID: "u1"}, time.Hour)
		assert.ErrorIs(t, err, ErrSecretRequired)
	})
}

func TestPeek(t *testing.T) {
	t.Run("正常系: 署名を検証せずに読める", func(t *testing.T) {
		raw, err := NewSigner("other-secret", "").Issue(Identity{ID: "admin", Name: "Admin", Role: occupant.RoleOperator}, time.Hour)
		require.NoError(t, err)

		id, err := Peek(raw)
		require.NoError(t, err)
		assert.Equal(t, Identity{ID: "admin", Name: "Admin", Role: occupant.RoleOperator}, id)
	})

	t.Run("異常系: トークンの形式が不正", func(t *testing.T) {
		_, err := Peek("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
