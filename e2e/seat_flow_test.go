package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
	"github.com/sanosuguru/go-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-seat-reservation/internal/client"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/view"
)

// TestE2E_HealthCheck はヘルスチェックをテスト
func TestE2E_HealthCheck(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request("GET", "/health", nil, "")

	requireStatus(t, rec, http.StatusOK)
	resp := decode[handler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
}

// TestE2E_Unauthorized は認証のない呼び出しをテスト
func TestE2E_Unauthorized(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request("GET", "/api/v1/seats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = server.Request("GET", "/api/v1/seats", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestE2E_BookingJourney は座席作成から予約、解放までの流れをテスト
func TestE2E_BookingJourney(t *testing.T) {
	server := getTestServer(t)
	admin := tokenFor(t, "admin", "Admin", occupant.RoleOperator)
	alice := tokenFor(t, "u1", "Alice", occupant.RoleRegular)
	bob := tokenFor(t, "u2", "Bob", occupant.RoleRegular)
	until := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	t.Run("運用者が座席を一括作成", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/seats/bulk", map[string]int{"count": 3}, admin)
		requireStatus(t, rec, http.StatusCreated)
		seats := decode[[]dto.SeatResponse](t, rec)
		require.Len(t, seats, 3)
		assert.Equal(t, []string{"1", "2", "3"}, []string{seats[0].ID, seats[1].ID, seats[2].ID})
	})

	t.Run("利用者を登録", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/occupants/me", nil, alice)
		requireStatus(t, rec, http.StatusCreated)
		rec = server.Request("POST", "/api/v1/occupants/me", nil, alice)
		requireStatus(t, rec, http.StatusOK)
		rec = server.Request("POST", "/api/v1/occupants/me", nil, bob)
		requireStatus(t, rec, http.StatusCreated)
	})

	t.Run("Aliceが座席2を予約", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/seats/2/booking", dto.BookingRequest{Until: &until}, alice)
		requireStatus(t, rec, http.StatusCreated)
		s := decode[dto.SeatResponse](t, rec)
		assert.Equal(t, "active_booking", s.State)
		require.NotNil(t, s.OccupantName)
		assert.Equal(t, "Alice", *s.OccupantName)

		rec = server.Request("GET", "/api/v1/occupants/me", nil, alice)
		me := decode[dto.OccupantResponse](t, rec)
		require.NotNil(t, me.SeatID)
		assert.Equal(t, "2", *me.SeatID)
	})

	t.Run("Bobは予約中の座席を取れない", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/seats/2/booking", dto.BookingRequest{Until: &until}, bob)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "seat_unavailable", decode[dto.ErrorResponse](t, rec).Reason)
	})

	t.Run("Aliceは2つ目の座席を取れない", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/seats/3/booking", dto.BookingRequest{Until: &until}, alice)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "already_holding_seat", decode[dto.ErrorResponse](t, rec).Reason)
	})

	t.Run("過去の期限では予約できない", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		rec := server.Request("POST", "/api/v1/seats/3/booking", dto.BookingRequest{Until: &past}, bob)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_deadline", decode[dto.ErrorResponse](t, rec).Reason)
	})

	t.Run("座席表は見る人によって変わる", func(t *testing.T) {
		rec := server.Request("GET", "/api/v1/board", nil, bob)
		requireStatus(t, rec, http.StatusOK)
		tiles := decode[[]view.Tile](t, rec)
		require.Len(t, tiles, 3)
		assert.Equal(t, view.TillLabel(until, time.UTC), tiles[1].Label)
		assert.False(t, tiles[1].Clickable)
		assert.True(t, tiles[2].Clickable)

		rec = server.Request("GET", "/api/v1/board", nil, alice)
		tiles = decode[[]view.Tile](t, rec)
		assert.True(t, tiles[1].Mine)
		assert.Equal(t, view.LabelYours, tiles[1].Label)
		assert.True(t, tiles[1].Clickable)
		// 座席を持っている間は他の空席を押せない
		assert.False(t, tiles[0].Clickable)
	})

	t.Run("Bobは他人の予約を解放できない", func(t *testing.T) {
		rec := server.Request("DELETE", "/api/v1/seats/2/booking", nil, bob)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "not_owner", decode[dto.ErrorResponse](t, rec).Reason)
	})

	t.Run("Aliceが解放するとBobが予約できる", func(t *testing.T) {
		rec := server.Request("DELETE", "/api/v1/seats/2/booking", nil, alice)
		requireStatus(t, rec, http.StatusNoContent)

		rec = server.Request("POST", "/api/v1/seats/2/booking", dto.BookingRequest{Until: &until}, bob)
		requireStatus(t, rec, http.StatusCreated)

		rec = server.Request("GET", "/api/v1/occupants", nil, admin)
		requireStatus(t, rec, http.StatusOK)
		list := decode[[]dto.OccupantResponse](t, rec)
		require.Len(t, list, 2)
		assert.Nil(t, list[0].SeatID)
		require.NotNil(t, list[1].SeatID)
		assert.Equal(t, "2", *list[1].SeatID)
	})
}

// TestE2E_OperatorControls は運用者の座席管理をテスト
func TestE2E_OperatorControls(t *testing.T) {
	server := getTestServer(t)
	admin := tokenFor(t, "admin", "Admin", occupant.RoleOperator)
	alice := tokenFor(t, "u1", "Alice", occupant.RoleRegular)
	until := time.Now().Add(time.Hour)

	requireStatus(t, server.Request("POST", "/api/v1/seats", nil, admin), http.StatusCreated)
	requireStatus(t, server.Request("POST", "/api/v1/seats", nil, admin), http.StatusCreated)
	requireStatus(t, server.Request("POST", "/api/v1/occupants/me", nil, alice), http.StatusCreated)

	t.Run("一般利用者は座席を作成できない", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/seats", nil, alice)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("運用者は予約できない", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/seats/1/booking", dto.BookingRequest{Until: &until}, admin)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("強制使用中の座席は予約も削除もできない", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/seats/1/toggle", nil, admin)
		requireStatus(t, rec, http.StatusOK)
		assert.Equal(t, "forced_occupied", decode[dto.SeatResponse](t, rec).State)

		rec = server.Request("POST", "/api/v1/seats/1/booking", dto.BookingRequest{Until: &until}, alice)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = server.Request("DELETE", "/api/v1/seats/1", nil, admin)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "seat_occupied", decode[dto.ErrorResponse](t, rec).Reason)
	})

	t.Run("予約中の座席を切り替えると予約者の座席も外れる", func(t *testing.T) {
		requireStatus(t, server.Request("POST", "/api/v1/seats/2/booking", dto.BookingRequest{Until: &until}, alice), http.StatusCreated)

		rec := server.Request("POST", "/api/v1/seats/2/toggle", nil, admin)
		requireStatus(t, rec, http.StatusOK)
		assert.Equal(t, "vacant", decode[dto.SeatResponse](t, rec).State)

		rec = server.Request("GET", "/api/v1/occupants/me", nil, alice)
		assert.Nil(t, decode[dto.OccupantResponse](t, rec).SeatID)
	})

	t.Run("空席は削除でき、IDは再利用される", func(t *testing.T) {
		requireStatus(t, server.Request("DELETE", "/api/v1/seats/2", nil, admin), http.StatusNoContent)
		assert.Equal(t, http.StatusNotFound, server.Request("GET", "/api/v1/seats/2", nil, admin).Code)

		rec := server.Request("POST", "/api/v1/seats", nil, admin)
		requireStatus(t, rec, http.StatusCreated)
		assert.Equal(t, "2", decode[dto.SeatResponse](t, rec).ID)
	})

	t.Run("作成数の上限", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/seats/bulk", map[string]int{"count": 101}, admin)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// TestE2E_Stream はクライアントから変更ストリームを購読するテスト
func TestE2E_Stream(t *testing.T) {
	server := getTestServer(t)
	admin := tokenFor(t, "admin", "Admin", occupant.RoleOperator)
	alice := tokenFor(t, "u1", "Alice", occupant.RoleRegular)

	requireStatus(t, server.Request("POST", "/api/v1/seats/bulk", map[string]int{"count": 2}, admin), http.StatusCreated)
	requireStatus(t, server.Request("POST", "/api/v1/occupants/me", nil, alice), http.StatusCreated)

	board := view.NewBoard(view.Viewer{ID: "u1"})
	changed := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- client.New(server.HTTP.URL, alice).Watch(ctx, board, func() { changed <- struct{}{} })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// 初期状態
	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("初期状態が届きませんでした")
	}
	require.Len(t, board.Seats(), 2)

	// 別の利用者の操作が届く
	c := client.New(server.HTTP.URL, alice)
	_, err := c.Book(ctx, "1", dto.BookingRequest{UntilClock: "23:59"})
	if client.IsReason(err, "invalid_deadline") {
		// 日付が変わる直前に実行された場合
		until := time.Now().Add(time.Hour)
		_, err = c.Book(ctx, "1", dto.BookingRequest{Until: &until})
	}
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mine := board.MySeatID()
		tiles := board.Tiles(time.Now(), time.UTC)
		return mine != nil && *mine == "1" && len(tiles) == 2 && tiles[0].Mine
	}, 2*time.Second, 10*time.Millisecond)

	// 座席の削除も届く
	requireStatus(t, server.Request("DELETE", "/api/v1/seats/2", nil, admin), http.StatusNoContent)
	assert.Eventually(t, func() bool {
		return len(board.Seats()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
