package application

import (
	"context"
	"errors"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
)

// OccupantService は利用者の登録と参照を扱う
type OccupantService struct {
	occupantRepo occupant.Repository
	notifier     notifier
	opts         options
}

func NewOccupantService(or occupant.Repository, pub change.Publisher, opts ...Option) *OccupantService {
	return &OccupantService{
		occupantRepo: or,
		notifier:     notifier{publisher: pub},
		opts:         buildOptions(opts),
	}
}

// Register は呼び出し元を座席を持たない利用者として登録する
// 登録済みなら既存のレコードを返し、created は false
func (s *OccupantService) Register(ctx context.Context, caller Caller) (*occupant.Occupant, bool, error) {
	if caller.ID == "" {
		return nil, false, occupant.ErrOccupantIDRequired
	}
	existing, err := s.occupantRepo.GetByID(ctx, caller.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, occupant.ErrOccupantNotFound) {
		return nil, false, classify("利用者登録", err)
	}

	now := s.opts.now()
	o := occupant.NewOccupant(caller.ID, caller.Name, caller.Role, now)
	if err := s.occupantRepo.Create(ctx, o); err != nil {
		if errors.Is(err, occupant.ErrOccupantAlreadyExists) {
			// 同時登録に負けた場合は勝った方を返す
			existing, getErr := s.occupantRepo.GetByID(ctx, caller.ID)
			if getErr != nil {
				return nil, false, classify("利用者登録", getErr)
			}
			return existing, false, nil
		}
		return nil, false, classify("利用者登録", err)
	}

	s.notifier.afterCommit(ctx, []change.Event{change.OccupantChanged(o, now)})
	return o, true, nil
}

// Get はIDから利用者を取得する
func (s *OccupantService) Get(ctx context.Context, id string) (*occupant.Occupant, error) {
	o, err := s.occupantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, classify("利用者取得", err)
	}
	return o, nil
}

// ListRegular は一般利用者を名前順に返す（運用者のみ）
func (s *OccupantService) ListRegular(ctx context.Context, caller Caller) ([]*occupant.Occupant, error) {
	if !caller.IsOperator() {
		return nil, ErrNotAuthorized
	}
	all, err := s.occupantRepo.List(ctx)
	if err != nil {
		return nil, classify("利用者一覧の取得", err)
	}
	regular := make([]*occupant.Occupant, 0, len(all))
	for _, o := range all {
		if !o.IsOperator() {
			regular = append(regular, o)
		}
	}
	return regular, nil
}

// CurrentEvents は全利用者の現在状態をイベントとして返す
func (s *OccupantService) CurrentEvents(ctx context.Context) ([]change.Event, error) {
	all, err := s.occupantRepo.List(ctx)
	if err != nil {
		return nil, classify("利用者一覧の取得", err)
	}
	now := s.opts.now()
	events := make([]change.Event, len(all))
	for i, o := range all {
		events[i] = change.OccupantChanged(o, now)
	}
	return events, nil
}
