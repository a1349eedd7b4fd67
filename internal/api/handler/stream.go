package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/bus"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Subscriber は変更イベントの購読を開始する
type Subscriber interface {
	Subscribe(filter change.Filter) *bus.Subscription
}

// StreamHandler は WebSocket で座席と利用者の変更を送る
type StreamHandler struct {
	seats     SeatServiceInterface
	occupants OccupantServiceInterface
	hub       Subscriber
	upgrader  websocket.Upgrader
	now       func() time.Time
}

func NewStreamHandler(seats SeatServiceInterface, occupants OccupantServiceInterface, hub Subscriber) *StreamHandler {
	return &StreamHandler{
		seats:     seats,
		occupants: occupants,
		hub:       hub,
		upgrader: websocket.Upgrader{
			// CORS と同じく全オリジンを許可する。認証はトークンで行う
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Stream godoc
// @Summary 変更ストリーム（WebSocket）
// @Description 接続直後に現在の状態を snapshot で送り、その後は変更のたびに change を送ります
// @Tags stream
// @Param access_token query string false "ブラウザ用の認証トークン"
// @Router /stream [get]
func (h *StreamHandler) Stream(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return err
	}

	// 取りこぼさないよう初期状態を読む前に購読を始める
	// 重複は受信側がバージョンで捨てる
	sub := h.hub.Subscribe(change.ForObserver(caller.ID, caller.IsOperator()))
	defer sub.Close()

	ctx := c.Request().Context()
	snapshot, err := h.snapshot(ctx, caller)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade が応答を書いている
		return nil
	}
	defer conn.Close()

	log := logger.FromContext(ctx).With(zap.String("subscriber_id", uuid.NewString()), zap.String("caller_id", caller.ID))
	log.Info("変更ストリームを開始しました")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// クライアントからのメッセージは読み捨て、切断の検出とPongの処理だけ行う
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	if err := writeMessage(conn, dto.StreamMessage{Type: dto.StreamSnapshot, Events: snapshot}); err != nil {
		log.Warn("初期状態の送信に失敗しました", zap.Error(err))
		return nil
	}

	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, bus.ErrClosed) {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
					time.Now().Add(writeWait))
			}
			log.Info("変更ストリームを終了しました", zap.Error(err))
			return nil
		}
		if err := writeMessage(conn, dto.StreamMessage{Type: dto.StreamChange, Events: []change.Event{ev}}); err != nil {
			log.Info("変更ストリームの送信に失敗しました", zap.Error(err))
			return nil
		}
	}
}

// snapshot は呼び出し元が受け取るべき現在の状態をイベントとして返す
func (h *StreamHandler) snapshot(ctx context.Context, caller application.Caller) ([]change.Event, error) {
	now := h.now()
	seats, err := h.seats.FreshSeats(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]change.Event, 0, len(seats)+1)
	for _, s := range seats {
		events = append(events, change.SeatChanged(s, now))
	}

	if caller.IsOperator() {
		list, err := h.occupants.ListRegular(ctx, caller)
		if err != nil {
			return nil, err
		}
		for _, o := range list {
			events = append(events, change.OccupantChanged(o, now))
		}
		return events, nil
	}

	me, err := h.occupants.Get(ctx, caller.ID)
	switch {
	case err == nil:
		events = append(events, change.OccupantChanged(me, now))
	case !errors.Is(err, occupant.ErrOccupantNotFound):
		return nil, err
	}
	return events, nil
}

func writeMessage(conn *websocket.Conn, msg dto.StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
