package http

import (
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ChannelItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type ChannelsListResponse struct {
	Items []ChannelItem `json:"items"`
}

type MessageItem struct {
	ID               string     `json:"id"`
	ChannelID        string     `json:"channel_id"`
	UserID           string     `json:"user_id"`
	Username         string     `json:"username"`
	Content          string     `json:"content"`
	CreatedAt        time.Time  `json:"created_at"`
	IsModerated      bool       `json:"is_moderated"`
	ModerationStatus string     `json:"moderation_status"`
	ModerationReason *string    `json:"moderation_reason,omitempty"`
	ModeratedBy      *string    `json:"moderated_by,omitempty"`
	ModeratedAt      *time.Time `json:"moderated_at,omitempty"`
	IdempotencyKey   string     `json:"idempotency_key,omitempty"`
}

type MessagesResponse struct {
	Items []MessageItem `json:"items"`
}

type HistoryResponse struct {
	Items      []MessageItem `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type SendMessageRequest struct {
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type ModerateRequest struct {
	Status string  `json:"status"` // approved|rejected
	Reason *string `json:"reason,omitempty"`
}

type TypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

type TypingItem struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	StartedAt time.Time `json:"started_at"`
}

type TypingResponse struct {
	Items []TypingItem `json:"items"`
}

type HeartbeatRequest struct {
	Status string `json:"status,omitempty"` // online|offline|away; default online
}

type PresenceItem struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

type OnlineResponse struct {
	Items []PresenceItem `json:"items"`
}

type MeResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	IsModerator bool   `json:"is_moderator"`
}

func toMessageItem(m domain.Message) MessageItem {
	return MessageItem{
		ID:               m.ID,
		ChannelID:        m.ChannelID,
		UserID:           m.UserID,
		Username:         m.Username,
		Content:          m.Content,
		CreatedAt:        m.CreatedAt.Truncate(time.Millisecond),
		IsModerated:      m.IsModerated,
		ModerationStatus: string(m.ModerationStatus),
		ModerationReason: m.ModerationReason,
		ModeratedBy:      m.ModeratedBy,
		ModeratedAt:      m.ModeratedAt,
		IdempotencyKey:   m.IdempotencyKey,
	}
}

func toMessageItems(msgs []domain.Message) []MessageItem {
	out := make([]MessageItem, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageItem(m))
	}
	return out
}

func toTypingItems(markers []domain.TypingMarker) []TypingItem {
	out := make([]TypingItem, 0, len(markers))
	for _, t := range markers {
		out = append(out, TypingItem{
			ChannelID: t.ChannelID,
			UserID:    t.UserID,
			Username:  t.Username,
			StartedAt: t.StartedAt,
		})
	}
	return out
}

func toPresenceItems(recs []domain.PresenceRecord) []PresenceItem {
	out := make([]PresenceItem, 0, len(recs))
	for _, p := range recs {
		out = append(out, PresenceItem{
			UserID:   p.UserID,
			Username: p.Username,
			Status:   string(p.Status),
			LastSeen: p.LastSeen,
		})
	}
	return out
}
