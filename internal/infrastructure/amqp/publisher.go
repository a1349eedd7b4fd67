// Package amqp は変更イベントを RabbitMQ の永続キューへ送る
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

const contentType = "application/json"

// ErrPublisherClosed は閉じた Publisher への送信を表す
var ErrPublisherClosed = errors.New("AMQPパブリッシャーは閉じられています")

// Publisher は変更イベントを監査用の永続キューへ送る
// チャネルはスレッドセーフではないので送信を直列化する
type Publisher struct {
	mu      sync.Mutex
	url     string
	queue   string
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

// Dial はブローカーに接続しキューを宣言する
func Dial(url, queue string) (*Publisher, error) {
	p := &Publisher{url: url, queue: queue}
	if err := p.connect(); err != nil {
		return nil, err
	}
	logger.Info("AMQPパブリッシャーを初期化しました", zap.String("queue", queue))
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("AMQP接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("AMQPチャネルの作成に失敗: %w", err)
	}
	// ブローカー再起動後も残るよう durable で宣言する
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("キューの宣言に失敗: %w", err)
	}
	p.conn = conn
	p.channel = ch
	return nil
}

// Publish はイベントを1件ずつ永続メッセージとして送る
// 接続が切れていた場合は一度だけ再接続する
func (p *Publisher) Publish(ctx context.Context, events ...change.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}

	for _, ev := range events {
		msg, err := encode(ev)
		if err != nil {
			return err
		}
		if p.channel == nil || p.channel.IsClosed() {
			if err := p.reconnect(); err != nil {
				return err
			}
		}
		if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
			return fmt.Errorf("変更イベントの送信に失敗: %w", err)
		}
	}
	return nil
}

func (p *Publisher) reconnect() error {
	logger.Warn("AMQP接続が切れているため再接続します", zap.String("queue", p.queue))
	p.closeConn()
	return p.connect()
}

// Close はチャネルと接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.closeConn()
}

func (p *Publisher) closeConn() error {
	var errs []error
	if p.channel != nil && !p.channel.IsClosed() {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	p.channel, p.conn = nil, nil
	return errors.Join(errs...)
}

// encode はイベントをメッセージに変換する
// MessageId にキーとバージョンを入れて受信側で重複を判定できるようにする
func encode(ev change.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("変更イベントの変換に失敗: %w", err)
	}
	ts := ev.OccurredAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("%s@%d.%d", ev.Key, ev.Generation, ev.Version),
		Type:         string(ev.Kind),
		Timestamp:    ts.UTC(),
		Body:         body,
	}, nil
}

// Decode は受信したメッセージ本文をイベントに戻す
func Decode(body []byte) (change.Event, error) {
	var ev change.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return change.Event{}, fmt.Errorf("変更イベントの復元に失敗: %w", err)
	}
	if _, _, ok := change.ParseKey(ev.Key); !ok {
		return change.Event{}, fmt.Errorf("不正なキー: %q", ev.Key)
	}
	return ev, nil
}

var _ change.Publisher = (*Publisher)(nil)
