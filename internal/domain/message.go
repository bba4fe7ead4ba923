package domain

import "time"

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Текст-заглушка вместо контента отклонённого сообщения.
const RejectedPlaceholder = "This message has been removed by a moderator."

func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	}
	return false
}

type Message struct {
	ID               string           `db:"id"`
	ChannelID        string           `db:"channel_id"`
	UserID           string           `db:"user_id"`
	Username         string           `db:"username"`
	Content          string           `db:"content"`
	CreatedAt        time.Time        `db:"created_at"`
	IsModerated      bool             `db:"is_moderated"`
	ModerationStatus ModerationStatus `db:"moderation_status"`
	ModerationReason *string          `db:"moderation_reason"`
	ModeratedBy      *string          `db:"moderated_by"`
	ModeratedAt      *time.Time       `db:"moderated_at"`
	IdempotencyKey   string           `db:"idempotency_key"`
}

// Rejected — контент такого сообщения не отдаётся читателям.
func (m *Message) Rejected() bool {
	return m.ModerationStatus == ModerationRejected
}
