package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/config"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := NewClient(&config.RedisConfig{Host: "localhost", Port: "6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := Ping(ctx, client); err != nil {
		client.Close()
		t.Skip("Redis not available")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSeatCache(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewSeatCache(client)
	ctx := context.Background()
	require.NoError(t, cache.Invalidate(ctx))

	t.Run("キャッシュミス時はErrCacheMissを返す", func(t *testing.T) {
		_, _, err := cache.GetSeats(ctx)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("保存した座席一覧を取得できる", func(t *testing.T) {
		now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		booked := seat.NewSeat("2", now)
		require.NoError(t, booked.Book("u1", "Asha", now.Add(time.Hour), now))
		seats := []*seat.Seat{seat.NewSeat("1", now), booked}

		_, epoch, err := cache.GetSeats(ctx)
		require.ErrorIs(t, err, ErrCacheMiss)
		require.NoError(t, cache.SetSeats(ctx, epoch, seats, 30*time.Second))

		got, _, err := cache.GetSeats(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.True(t, got[0].IsVacant())
		assert.True(t, got[1].IsHeldBy("u1"))
		assert.True(t, got[1].BookedUntil.Equal(now.Add(time.Hour)))
	})

	t.Run("無効化後はキャッシュミスになる", func(t *testing.T) {
		require.NoError(t, cache.Invalidate(ctx))

		_, _, err := cache.GetSeats(ctx)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("無効化より前に読んだ一覧の埋め戻しは読まれない", func(t *testing.T) {
		now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		_, epoch, err := cache.GetSeats(ctx)
		require.ErrorIs(t, err, ErrCacheMiss)

		// ストアを読んでいる間に書き込みがコミットされた
		require.NoError(t, cache.Invalidate(ctx))
		require.NoError(t, cache.SetSeats(ctx, epoch, []*seat.Seat{seat.NewSeat("1", now)}, 30*time.Second))

		_, current, err := cache.GetSeats(ctx)
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.Equal(t, epoch+1, current)
	})
}
