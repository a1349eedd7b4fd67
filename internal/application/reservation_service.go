package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// ReservationService は座席と利用者の両方を書き換える操作をまとめる
// 1回の操作はひとつのトランザクションで、座席行、利用者行(ID順)の順にロックする
type ReservationService struct {
	txManager    transaction.Manager
	seatRepo     seat.Repository
	occupantRepo occupant.Repository
	lockManager  redisinfra.LockManagerInterface
	notifier     notifier
	opts         options
}

func NewReservationService(
	txm transaction.Manager,
	sr seat.Repository,
	or occupant.Repository,
	lm redisinfra.LockManagerInterface,
	cache redisinfra.SeatCacheInterface,
	pub change.Publisher,
	opts ...Option,
) *ReservationService {
	return &ReservationService{
		txManager:    txm,
		seatRepo:     sr,
		occupantRepo: or,
		lockManager:  lm,
		notifier:     notifier{cache: cache, publisher: pub},
		opts:         buildOptions(opts),
	}
}

type CreateBookingInput struct {
	Caller Caller
	SeatID string
	Until  time.Time
}

type ReleaseBookingInput struct {
	Caller Caller
	SeatID string
}

type ToggleSeatInput struct {
	Caller Caller
	SeatID string
}

// CreateBooking は空席または期限切れの座席を呼び出し元の予約にする
func (s *ReservationService) CreateBooking(ctx context.Context, input CreateBookingInput) (*seat.Seat, error) {
	booked, err := s.createBooking(ctx, input)
	s.observe(ctx, "book", err, logger.SeatID(input.SeatID), logger.OccupantID(input.Caller.ID))
	return booked, err
}

func (s *ReservationService) createBooking(ctx context.Context, input CreateBookingInput) (*seat.Seat, error) {
	if input.Caller.IsOperator() {
		return nil, ErrNotAuthorized
	}
	if !input.Until.After(s.opts.now()) {
		return nil, seat.ErrInvalidDeadline
	}

	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return nil, classify("予約", err)
	}
	defer unlock()

	var booked *seat.Seat
	var events []change.Event
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		se, err := s.seatRepo.GetForUpdate(ctx, tx, input.SeatID)
		if err != nil {
			return err
		}
		now := s.opts.now()
		if !se.EffectiveStateAt(now).IsClaimable() {
			return seat.ErrSeatUnavailable
		}

		ids := []string{input.Caller.ID}
		if se.OccupantID != nil {
			ids = append(ids, *se.OccupantID)
		}
		locked, err := s.lockOccupants(ctx, tx, ids...)
		if err != nil {
			return err
		}
		caller, ok := locked[input.Caller.ID]
		if !ok {
			return occupant.ErrOccupantNotFound
		}
		if caller.IsOperator() {
			return ErrNotAuthorized
		}
		if caller.HoldsSeat() {
			return occupant.ErrAlreadyHoldingSeat
		}

		name := caller.Name
		if name == "" {
			name = input.Caller.Name
		}
		if err := se.Book(caller.ID, name, input.Until, now); err != nil {
			return err
		}
		if err := caller.AssignSeat(se.ID, now); err != nil {
			return err
		}

		// 期限切れの予約を引き継ぐ場合は前の予約者の参照を先に外す
		for id, prev := range locked {
			if id == caller.ID || !prev.HoldsSeatID(se.ID) {
				continue
			}
			prev.ClearSeat(now)
			if err := s.occupantRepo.Update(ctx, tx, prev); err != nil {
				return err
			}
			events = append(events, change.OccupantChanged(prev, now))
		}
		if err := s.occupantRepo.Update(ctx, tx, caller); err != nil {
			return err
		}
		if err := s.seatRepo.Update(ctx, tx, se); err != nil {
			return err
		}
		events = append(events, change.SeatChanged(se, now), change.OccupantChanged(caller, now))
		booked = se
		return nil
	})
	if err != nil {
		return nil, classify("予約", err)
	}

	s.notifier.afterCommit(ctx, events)
	return booked, nil
}

// ReleaseBooking は呼び出し元が予約している座席を空席に戻す
// 期限切れでも回収前なら解放できる
func (s *ReservationService) ReleaseBooking(ctx context.Context, input ReleaseBookingInput) error {
	err := s.releaseBooking(ctx, input)
	s.observe(ctx, "release", err, logger.SeatID(input.SeatID), logger.OccupantID(input.Caller.ID))
	return err
}

func (s *ReservationService) releaseBooking(ctx context.Context, input ReleaseBookingInput) error {
	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return classify("予約解放", err)
	}
	defer unlock()

	var events []change.Event
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		se, err := s.seatRepo.GetForUpdate(ctx, tx, input.SeatID)
		if err != nil {
			if errors.Is(err, seat.ErrSeatNotFound) {
				return seat.ErrNotOwner
			}
			return err
		}
		if !se.IsHeldBy(input.Caller.ID) {
			return seat.ErrNotOwner
		}
		locked, err := s.lockOccupants(ctx, tx, input.Caller.ID)
		if err != nil {
			return err
		}

		now := s.opts.now()
		se.Vacate(now)
		if err := s.seatRepo.Update(ctx, tx, se); err != nil {
			return err
		}
		events = append(events, change.SeatChanged(se, now))

		if o, ok := locked[input.Caller.ID]; ok && o.HoldsSeatID(se.ID) {
			o.ClearSeat(now)
			if err := s.occupantRepo.Update(ctx, tx, o); err != nil {
				return err
			}
			events = append(events, change.OccupantChanged(o, now))
		}
		return nil
	})
	if err != nil {
		return classify("予約解放", err)
	}

	s.notifier.afterCommit(ctx, events)
	return nil
}

// ToggleSeat は運用者が座席を空席と使用中の間で切り替える
// 予約が入っている座席は予約者の参照も外して空席にする
func (s *ReservationService) ToggleSeat(ctx context.Context, input ToggleSeatInput) (*seat.Seat, error) {
	toggled, err := s.toggleSeat(ctx, input)
	s.observe(ctx, "toggle", err, logger.SeatID(input.SeatID), logger.OperatorID(input.Caller.ID))
	return toggled, err
}

func (s *ReservationService) toggleSeat(ctx context.Context, input ToggleSeatInput) (*seat.Seat, error) {
	if !input.Caller.IsOperator() {
		return nil, ErrNotAuthorized
	}

	unlock, err := s.lockSeat(ctx, input.SeatID)
	if err != nil {
		return nil, classify("座席切り替え", err)
	}
	defer unlock()

	var toggled *seat.Seat
	var events []change.Event
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		se, err := s.seatRepo.GetForUpdate(ctx, tx, input.SeatID)
		if err != nil {
			return err
		}
		var previous *occupant.Occupant
		if se.OccupantID != nil {
			locked, err := s.lockOccupants(ctx, tx, *se.OccupantID)
			if err != nil {
				return err
			}
			previous = locked[*se.OccupantID]
		}

		now := s.opts.now()
		se.Toggle(now)
		if previous != nil && previous.HoldsSeatID(se.ID) {
			previous.ClearSeat(now)
			if err := s.occupantRepo.Update(ctx, tx, previous); err != nil {
				return err
			}
			events = append(events, change.OccupantChanged(previous, now))
		}
		if err := s.seatRepo.Update(ctx, tx, se); err != nil {
			return err
		}
		events = append(events, change.SeatChanged(se, now))
		toggled = se
		return nil
	})
	if err != nil {
		return nil, classify("座席切り替え", err)
	}

	s.notifier.afterCommit(ctx, events)
	return toggled, nil
}

// ReclaimExpiredBookings は期限切れの予約を空席に戻し、予約者の参照を外す
// 期限切れの座席は回収しなくても予約できるので、これは表示と一覧を整えるための処理
func (s *ReservationService) ReclaimExpiredBookings(ctx context.Context) (int, error) {
	candidates, err := s.seatRepo.ListExpiredBookings(ctx, s.opts.now())
	if err != nil {
		return 0, classify("期限切れ予約の取得", err)
	}

	reclaimed := 0
	var errs []error
	for _, c := range candidates {
		ok, err := s.reclaim(ctx, c.ID)
		s.observe(ctx, "reclaim", err, logger.SeatID(c.ID))
		if err != nil {
			errs = append(errs, fmt.Errorf("座席 %s: %w", c.ID, err))
			continue
		}
		if ok {
			reclaimed++
		}
	}
	return reclaimed, errors.Join(errs...)
}

func (s *ReservationService) reclaim(ctx context.Context, seatID string) (bool, error) {
	unlock, err := s.acquireSeatLock(ctx, seatID)
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			// 処理中の座席は次回に回す
			return false, nil
		}
		return false, classify("期限切れ予約の回収", err)
	}
	defer unlock()

	var events []change.Event
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		se, err := s.seatRepo.GetForUpdate(ctx, tx, seatID)
		if err != nil {
			return err
		}
		now := s.opts.now()
		// 取得後に予約し直された可能性があるので時刻を取り直して判定する
		if se.EffectiveStateAt(now) != seat.StateExpiredBooking {
			return nil
		}
		prevID := *se.OccupantID
		locked, err := s.lockOccupants(ctx, tx, prevID)
		if err != nil {
			return err
		}

		se.Vacate(now)
		if prev, ok := locked[prevID]; ok && prev.HoldsSeatID(se.ID) {
			prev.ClearSeat(now)
			if err := s.occupantRepo.Update(ctx, tx, prev); err != nil {
				return err
			}
			events = append(events, change.OccupantChanged(prev, now))
		}
		if err := s.seatRepo.Update(ctx, tx, se); err != nil {
			return err
		}
		events = append(events, change.SeatChanged(se, now))
		return nil
	})
	if err != nil {
		if errors.Is(err, seat.ErrSeatNotFound) {
			return false, nil
		}
		return false, classify("期限切れ予約の回収", err)
	}

	s.notifier.afterCommit(ctx, events)
	return len(events) > 0, nil
}

// lockOccupants は利用者行をID順にロックして取得する
// 登録されていない利用者は結果に含めない
func (s *ReservationService) lockOccupants(ctx context.Context, tx transaction.Tx, ids ...string) (map[string]*occupant.Occupant, error) {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)

	locked := make(map[string]*occupant.Occupant, len(uniq))
	for _, id := range uniq {
		o, err := s.occupantRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, occupant.ErrOccupantNotFound) {
				continue
			}
			return nil, err
		}
		locked[id] = o
	}
	return locked, nil
}

// lockSeat は座席単位の分散ロックを取る
// ロックが埋まっている場合や Redis に到達できない場合は行ロックだけで続行し、
// 座席の状態はトランザクション内の判定で決める
func (s *ReservationService) lockSeat(ctx context.Context, seatID string) (func(), error) {
	unlock, err := s.acquireSeatLock(ctx, seatID)
	if errors.Is(err, redisinfra.ErrLockNotAcquired) {
		logger.FromContext(ctx).Info("座席ロックが保持中のため行ロックで続行します", logger.SeatID(seatID))
		return func() {}, nil
	}
	return unlock, err
}

// acquireSeatLock はロックが埋まっていれば ErrLockNotAcquired を返す
// Redis 障害時はロックなしで続行する
func (s *ReservationService) acquireSeatLock(ctx context.Context, seatID string) (func(), error) {
	if s.lockManager == nil {
		return func() {}, nil
	}

	start := time.Now()
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, change.SeatKey(seatID), s.opts.lockTTL, s.opts.lockRetries, s.opts.lockRetryWait)
	if m := s.opts.metrics; m != nil {
		status := "success"
		if err != nil {
			status = "failed"
		}
		m.SeatLockDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.FromContext(ctx).Warn("座席ロックを取得できないためロックなしで続行します", logger.SeatID(seatID), zap.Error(err))
		return func() {}, nil
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redisinfra.ErrLockNotOwned) {
			logger.FromContext(ctx).Warn("座席ロックの解放に失敗しました", logger.SeatID(seatID), zap.Error(err))
		}
	}, nil
}

func (s *ReservationService) observe(ctx context.Context, operation string, err error, fields ...zap.Field) {
	observe(ctx, s.opts, operation, err, fields...)
}

// observe は操作結果をメトリクスとログに残す
// 前提条件違反は Info、それ以外の失敗は Error
func observe(ctx context.Context, opts options, operation string, err error, fields ...zap.Field) {
	label := resultLabel(err)
	opts.metrics.ObserveOperation(operation, label)
	l := logger.FromContext(ctx)
	switch label {
	case "rejected":
		l.Info("座席操作が拒否されました", append(fields, logger.Operation(operation), zap.Error(err))...)
	case "error":
		l.Error("座席操作に失敗しました", append(fields, logger.Operation(operation), zap.Error(err))...)
	}
}
