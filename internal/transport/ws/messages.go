package ws

import "time"

// Типы событий в WS-фиде канала
const (
	TypeState      = "state"      // снапшот при подключении: онлайн + печатающие
	TypeMessage    = "message"    // новое сообщение
	TypeMessageAck = "message_ack" // подтверждение отправки (НЕ сообщение)
	TypeTyping     = "typing"     // актуальный список печатающих
	TypeModeration = "moderation" // смена статуса модерации
)

type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatePayload struct {
	ChannelID string        `json:"channel_id"`
	Online    []OnlineItem  `json:"online"`
	Typing    []TypingItem  `json:"typing"`
	Messages  []MessageItem `json:"messages"`
}

type OnlineItem struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	LastSeen int64  `json:"last_seen_unix"`
}

type TypingItem struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type MessageItem struct {
	ID               string    `json:"id"`
	ChannelID        string    `json:"channel_id"`
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
	ModerationStatus string    `json:"moderation_status"`
}

// входящее от клиента: отправка сообщения
type SendPayload struct {
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// входящее от клиента: статус набора
type TypingPayload struct {
	IsTyping bool `json:"is_typing"`
}

// для клиента: снятие pending и дедупликация
type AckPayload struct {
	MsgID          string `json:"msg_id"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type ModerationPayload struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}
