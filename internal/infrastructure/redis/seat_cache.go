package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

const (
	seatBoardKeyPrefix = "seats:board:"
	// 無効化のたびに進む世代。一覧は世代ごとのキーに保存する
	seatBoardEpochKey = "seats:board:epoch"
)

func seatBoardKey(epoch int64) string {
	return seatBoardKeyPrefix + strconv.FormatInt(epoch, 10)
}

// SeatCacheInterface は座席一覧キャッシュの抽象
// GetSeats は読み出した時点の世代を返し、埋め戻しはその世代を SetSeats に渡す
// 間に無効化が入った場合、古い世代への書き込みは誰にも読まれない
type SeatCacheInterface interface {
	GetSeats(ctx context.Context) ([]*seat.Seat, int64, error)
	SetSeats(ctx context.Context, epoch int64, seats []*seat.Seat, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// SeatCache は座席一覧のキャッシュを管理する
// 期限切れの判定は読み出し側で行うので保存レコードをそのまま持つ
type SeatCache struct {
	client *redis.Client
}

// NewSeatCache は新しいSeatCacheインスタンスを作成する
func NewSeatCache(client *redis.Client) *SeatCache {
	return &SeatCache{client: client}
}

type cachedSeat struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	OccupantID   *string    `json:"occupant_id,omitempty"`
	OccupantName *string    `json:"occupant_name,omitempty"`
	BookedUntil  *time.Time `json:"booked_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Version      int        `json:"version"`
	Generation   int64      `json:"generation"`
}

// GetSeats は座席一覧をキャッシュから取得する
// キャッシュミスでも現在の世代を返す
func (c *SeatCache) GetSeats(ctx context.Context) ([]*seat.Seat, int64, error) {
	epoch, err := c.epoch(ctx)
	if err != nil {
		return nil, 0, err
	}
	raw, err := c.client.Get(ctx, seatBoardKey(epoch)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, epoch, ErrCacheMiss
		}
		return nil, epoch, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var cached []cachedSeat
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, epoch, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(cached))
	for i, cs := range cached {
		seats[i] = &seat.Seat{
			ID: cs.ID, Status: seat.Status(cs.Status),
			OccupantID: cs.OccupantID, OccupantName: cs.OccupantName, BookedUntil: cs.BookedUntil,
			CreatedAt: cs.CreatedAt, UpdatedAt: cs.UpdatedAt, Version: cs.Version, Generation: cs.Generation,
		}
	}
	return seats, epoch, nil
}

// SetSeats は座席一覧を epoch の世代で保存する
func (c *SeatCache) SetSeats(ctx context.Context, epoch int64, seats []*seat.Seat, ttl time.Duration) error {
	cached := make([]cachedSeat, len(seats))
	for i, s := range seats {
		cached[i] = cachedSeat{
			ID: s.ID, Status: string(s.Status),
			OccupantID: s.OccupantID, OccupantName: s.OccupantName, BookedUntil: s.BookedUntil,
			CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, Version: s.Version, Generation: s.Generation,
		}
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("キャッシュの変換に失敗: %w", err)
	}
	if err := c.client.Set(ctx, seatBoardKey(epoch), raw, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は世代を進めて座席一覧のキャッシュを無効化する
// 古い世代のキーは TTL で消える
func (c *SeatCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, seatBoardEpochKey).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *SeatCache) epoch(ctx context.Context) (int64, error) {
	epoch, err := c.client.Get(ctx, seatBoardEpochKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("キャッシュ世代の取得に失敗: %w", err)
	}
	return epoch, nil
}

var _ SeatCacheInterface = (*SeatCache)(nil)
