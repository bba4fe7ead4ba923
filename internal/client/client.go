// Package client — клиентская сторона чата: HTTP-клиент API и
// поллинг-синхронизатор представления канала.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"
	httpx "github.com/Lee21-bot/crime-chat/internal/transport/http"
)

// APIError — не-2xx ответ сервера.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Client — долгоживущий хендл на процесс/сессию, инжектируется в
// представления; не пересоздаётся на каждый рендер.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var er httpx.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		if er.Error == "" {
			er.Error = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: er.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) ListRecent(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	var resp httpx.MessagesResponse
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return fromMessageItems(resp.Items), nil
}

func (c *Client) SendMessage(ctx context.Context, channelID, content, idempotencyKey string) (*domain.Message, error) {
	var item httpx.MessageItem
	err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages",
		httpx.SendMessageRequest{Content: content, IdempotencyKey: idempotencyKey}, &item)
	if err != nil {
		return nil, err
	}
	m := fromMessageItem(item)
	return &m, nil
}

func (c *Client) Moderate(ctx context.Context, channelID, messageID string, status domain.ModerationStatus, reason *string) error {
	return c.do(ctx, http.MethodPost,
		"/channels/"+channelID+"/messages/"+messageID+"/moderate",
		httpx.ModerateRequest{Status: string(status), Reason: reason}, nil)
}

func (c *Client) SetTyping(ctx context.Context, channelID string, isTyping bool) error {
	return c.do(ctx, http.MethodPost, "/channels/"+channelID+"/typing",
		httpx.TypingRequest{IsTyping: isTyping}, nil)
}

func (c *Client) ListTyping(ctx context.Context, channelID string) ([]domain.TypingMarker, error) {
	var resp httpx.TypingResponse
	if err := c.do(ctx, http.MethodGet, "/channels/"+channelID+"/typing", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.TypingMarker, 0, len(resp.Items))
	for _, t := range resp.Items {
		out = append(out, domain.TypingMarker{
			ChannelID: t.ChannelID,
			UserID:    t.UserID,
			Username:  t.Username,
			StartedAt: t.StartedAt,
		})
	}
	return out, nil
}

func (c *Client) Heartbeat(ctx context.Context, status domain.PresenceStatus) error {
	return c.do(ctx, http.MethodPost, "/presence/heartbeat",
		httpx.HeartbeatRequest{Status: string(status)}, nil)
}

func (c *Client) ListOnline(ctx context.Context) ([]domain.PresenceRecord, error) {
	var resp httpx.OnlineResponse
	if err := c.do(ctx, http.MethodGet, "/presence/online", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.PresenceRecord, 0, len(resp.Items))
	for _, p := range resp.Items {
		out = append(out, domain.PresenceRecord{
			UserID:   p.UserID,
			Username: p.Username,
			Status:   domain.PresenceStatus(p.Status),
			LastSeen: p.LastSeen,
		})
	}
	return out, nil
}

func (c *Client) Me(ctx context.Context) (*httpx.MeResponse, error) {
	var resp httpx.MeResponse
	if err := c.do(ctx, http.MethodGet, "/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func fromMessageItem(it httpx.MessageItem) domain.Message {
	return domain.Message{
		ID:               it.ID,
		ChannelID:        it.ChannelID,
		UserID:           it.UserID,
		Username:         it.Username,
		Content:          it.Content,
		CreatedAt:        it.CreatedAt,
		IsModerated:      it.IsModerated,
		ModerationStatus: domain.ModerationStatus(it.ModerationStatus),
		ModerationReason: it.ModerationReason,
		ModeratedBy:      it.ModeratedBy,
		ModeratedAt:      it.ModeratedAt,
		IdempotencyKey:   it.IdempotencyKey,
	}
}

func fromMessageItems(items []httpx.MessageItem) []domain.Message {
	out := make([]domain.Message, 0, len(items))
	for _, it := range items {
		out = append(out, fromMessageItem(it))
	}
	return out
}
