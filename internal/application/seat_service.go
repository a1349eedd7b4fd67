package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-reservation/internal/view"
)

const (
	maxBulkSeats = 100
	// 同時作成でIDが衝突した場合の再試行回数
	maxCreateAttempts = 3
)

type SeatService struct {
	txManager transaction.Manager
	seatRepo  seat.Repository
	seatCache redisinfra.SeatCacheInterface
	notifier  notifier
	opts      options
}

func NewSeatService(txm transaction.Manager, sr seat.Repository, cache redisinfra.SeatCacheInterface, pub change.Publisher, opts ...Option) *SeatService {
	return &SeatService{
		txManager: txm,
		seatRepo:  sr,
		seatCache: cache,
		notifier:  notifier{cache: cache, publisher: pub},
		opts:      buildOptions(opts),
	}
}

type CreateSeatInput struct {
	Caller Caller
}

type CreateBulkSeatsInput struct {
	Caller Caller
	Count  int
}

type DeleteSeatInput struct {
	Caller Caller
	SeatID string
}

// CreateSeat は既存IDの最大値+1のIDで空席を作る
func (s *SeatService) CreateSeat(ctx context.Context, input CreateSeatInput) (*seat.Seat, error) {
	seats, err := s.create(ctx, input.Caller, 1)
	s.observe(ctx, "create", err)
	if err != nil {
		return nil, err
	}
	return seats[0], nil
}

// CreateBulkSeats は連番で複数の空席を作る
func (s *SeatService) CreateBulkSeats(ctx context.Context, input CreateBulkSeatsInput) ([]*seat.Seat, error) {
	if input.Count < 1 || input.Count > maxBulkSeats {
		return nil, ErrInvalidCount
	}
	seats, err := s.create(ctx, input.Caller, input.Count)
	s.observe(ctx, "create", err, zap.Int("count", input.Count))
	return seats, err
}

func (s *SeatService) create(ctx context.Context, caller Caller, count int) ([]*seat.Seat, error) {
	if !caller.IsOperator() {
		return nil, ErrNotAuthorized
	}

	var created []*seat.Seat
	var err error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		created, err = s.createOnce(ctx, count)
		if !errors.Is(err, seat.ErrSeatAlreadyExists) {
			break
		}
	}
	if err != nil {
		return nil, classify("座席作成", err)
	}

	now := s.opts.now()
	events := make([]change.Event, len(created))
	for i, se := range created {
		events[i] = change.SeatChanged(se, now)
	}
	s.notifier.afterCommit(ctx, events)
	return created, nil
}

func (s *SeatService) createOnce(ctx context.Context, count int) ([]*seat.Seat, error) {
	var created []*seat.Seat
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		existing, err := s.seatRepo.ListIDs(ctx, tx)
		if err != nil {
			return err
		}
		now := s.opts.now()
		for _, id := range seat.NextIDs(existing, count) {
			se := seat.NewSeat(id, now)
			if err := s.seatRepo.Create(ctx, tx, se); err != nil {
				return err
			}
			created = append(created, se)
		}
		return nil
	})
	return created, err
}

// DeleteSeat は空席を削除する
// 使用中の座席は予約や強制使用中を問わず削除できない
func (s *SeatService) DeleteSeat(ctx context.Context, input DeleteSeatInput) error {
	err := s.deleteSeat(ctx, input)
	s.observe(ctx, "delete", err, logger.SeatID(input.SeatID))
	return err
}

func (s *SeatService) deleteSeat(ctx context.Context, input DeleteSeatInput) error {
	if !input.Caller.IsOperator() {
		return ErrNotAuthorized
	}

	var deleted *seat.Seat
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		se, err := s.seatRepo.GetForUpdate(ctx, tx, input.SeatID)
		if err != nil {
			return err
		}
		if !se.IsVacant() {
			return seat.ErrSeatOccupied
		}
		if err := s.seatRepo.Delete(ctx, tx, se.ID); err != nil {
			return err
		}
		deleted = se
		return nil
	})
	if err != nil {
		return classify("座席削除", err)
	}

	s.notifier.afterCommit(ctx, []change.Event{change.SeatDeleted(deleted, s.opts.now())})
	return nil
}

// GetSeat はIDから座席を取得する
func (s *SeatService) GetSeat(ctx context.Context, id string) (*seat.Seat, error) {
	se, err := s.seatRepo.GetByID(ctx, id)
	if err != nil {
		return nil, classify("座席取得", err)
	}
	return se, nil
}

// ListSeats は全座席をID順に返す
// キャッシュがあれば先に参照する
func (s *SeatService) ListSeats(ctx context.Context) ([]*seat.Seat, error) {
	var epoch int64
	cacheUsable := s.seatCache != nil
	if cacheUsable {
		seats, e, err := s.seatCache.GetSeats(ctx)
		if err == nil {
			s.recordStates(seats)
			return seats, nil
		}
		epoch = e
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.FromContext(ctx).Warn("座席キャッシュの取得に失敗しました", zap.Error(err))
			// 世代が分からないので埋め戻さない
			cacheUsable = false
		}
	}

	seats, err := s.seatRepo.List(ctx)
	if err != nil {
		return nil, classify("座席一覧の取得", err)
	}
	seat.SortByID(seats)

	// 読み出し中に無効化されていれば古い世代に書かれるだけで読まれない
	if cacheUsable {
		if err := s.seatCache.SetSeats(ctx, epoch, seats, s.opts.cacheTTL); err != nil {
			logger.FromContext(ctx).Warn("座席キャッシュの保存に失敗しました", zap.Error(err))
		}
	}
	s.recordStates(seats)
	return seats, nil
}

// FreshSeats はキャッシュを通さずに全座席をID順に返す
// 変更ストリームの初期状態はこちらを使う
func (s *SeatService) FreshSeats(ctx context.Context) ([]*seat.Seat, error) {
	seats, err := s.seatRepo.List(ctx)
	if err != nil {
		return nil, classify("座席一覧の取得", err)
	}
	seat.SortByID(seats)
	return seats, nil
}

// CurrentEvents は全座席の現在状態をキャッシュを通さずにイベントとして返す
// 変更の中継が途切れた後の読み直しに使う
func (s *SeatService) CurrentEvents(ctx context.Context) ([]change.Event, error) {
	seats, err := s.FreshSeats(ctx)
	if err != nil {
		return nil, err
	}
	now := s.opts.now()
	events := make([]change.Event, len(seats))
	for i, se := range seats {
		events[i] = change.SeatChanged(se, now)
	}
	return events, nil
}

// Board は呼び出し元から見た座席表を返す
func (s *SeatService) Board(ctx context.Context, caller Caller) ([]view.Tile, error) {
	seats, err := s.ListSeats(ctx)
	if err != nil {
		return nil, err
	}
	viewer := view.Viewer{ID: caller.ID, Operator: caller.IsOperator()}
	return view.Project(seats, viewer, s.opts.now(), s.opts.location), nil
}

// Location は表示用のタイムゾーンを返す
func (s *SeatService) Location() *time.Location {
	return s.opts.location
}

func (s *SeatService) recordStates(seats []*seat.Seat) {
	m := s.opts.metrics
	if m == nil {
		return
	}
	counts := map[seat.EffectiveState]int{
		seat.StateVacant:         0,
		seat.StateActiveBooking:  0,
		seat.StateExpiredBooking: 0,
		seat.StateForcedOccupied: 0,
	}
	now := s.opts.now()
	for _, se := range seats {
		counts[se.EffectiveStateAt(now)]++
	}
	for state, n := range counts {
		m.Seats.WithLabelValues(string(state)).Set(float64(n))
	}
}

func (s *SeatService) observe(ctx context.Context, operation string, err error, fields ...zap.Field) {
	observe(ctx, s.opts, operation, err, fields...)
}
