// Package client は座席予約APIのHTTPクライアント
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sanosuguru/go-seat-reservation/internal/api/dto"
	"github.com/sanosuguru/go-seat-reservation/internal/view"
)

// APIError はAPIが返したエラーレスポンス
type APIError struct {
	Status    int
	Message   string
	Reason    string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Client は座席予約APIのクライアント
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// New はクライアントを作成する。baseURL は http://host:port の形式
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     websocket.DefaultDialer,
	}
}

func (c *Client) ListSeats(ctx context.Context) ([]dto.SeatResponse, error) {
	var seats []dto.SeatResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/seats", nil, &seats)
	return seats, err
}

func (c *Client) GetSeat(ctx context.Context, id string) (*dto.SeatResponse, error) {
	var s dto.SeatResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/seats/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSeats は count 個の座席を作る。1個なら単体作成のAPIを使う
func (c *Client) CreateSeats(ctx context.Context, count int) ([]dto.SeatResponse, error) {
	if count == 1 {
		var s dto.SeatResponse
		if err := c.do(ctx, http.MethodPost, "/api/v1/seats", nil, &s); err != nil {
			return nil, err
		}
		return []dto.SeatResponse{s}, nil
	}
	var seats []dto.SeatResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/seats/bulk", dto.CreateBulkSeatsRequest{Count: count}, &seats)
	return seats, err
}

func (c *Client) DeleteSeat(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/seats/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ToggleSeat(ctx context.Context, id string) (*dto.SeatResponse, error) {
	var s dto.SeatResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/seats/"+url.PathEscape(id)+"/toggle", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Book(ctx context.Context, id string, req dto.BookingRequest) (*dto.SeatResponse, error) {
	var s dto.SeatResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/seats/"+url.PathEscape(id)+"/booking", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Release(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/seats/"+url.PathEscape(id)+"/booking", nil, nil)
}

func (c *Client) Register(ctx context.Context) (*dto.OccupantResponse, error) {
	var o dto.OccupantResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/occupants/me", nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) Me(ctx context.Context) (*dto.OccupantResponse, error) {
	var o dto.OccupantResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/occupants/me", nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) Occupants(ctx context.Context) ([]dto.OccupantResponse, error) {
	var list []dto.OccupantResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/occupants", nil, &list)
	return list, err
}

func (c *Client) Board(ctx context.Context) ([]view.Tile, error) {
	var tiles []view.Tile
	err := c.do(ctx, http.MethodGet, "/api/v1/board", nil, &tiles)
	return tiles, err
}

// Watch は変更ストリームに接続し、受け取ったイベントを board に反映する
// 状態が変わるたびに onChange を呼ぶ。ctx がキャンセルされるかサーバーが切断するまで戻らない
func (c *Client) Watch(ctx context.Context, board *view.Board, onChange func()) error {
	wsURL, err := c.streamURL()
	if err != nil {
		return err
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return decodeError(resp)
		}
		return fmt.Errorf("ストリームへの接続に失敗しました: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		var msg dto.StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("ストリームの受信に失敗しました: %w", err)
		}
		changed := false
		for _, ev := range msg.Events {
			if board.Apply(ev) {
				changed = true
			}
		}
		if (changed || msg.Type == dto.StreamSnapshot) && onChange != nil {
			onChange()
		}
	}
}

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/api/v1/stream")
	if err != nil {
		return "", fmt.Errorf("URLが不正です: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストの作成に失敗しました: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("レスポンスの解析に失敗しました: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body dto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Reason = body.Reason
		apiErr.Retryable = body.Retryable
	}
	return apiErr
}

// IsReason はAPIエラーの reason が一致するかを返す
func IsReason(err error, reason string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Reason == reason
}

// Retryable はサーバーが再試行を許しているエラーかを返す
func Retryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

// StatusCode はAPIエラーのステータスを返す。APIエラーでなければ0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
