package domain

import "time"

type TypingMarker struct {
	ChannelID string    `db:"channel_id"`
	UserID    string    `db:"user_id"`
	Username  string    `db:"username"`
	StartedAt time.Time `db:"started_at"`
}

// Expired — маркер старше окна живости не показывается,
// даже если физически ещё лежит в сторе.
func (t *TypingMarker) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(t.StartedAt) >= ttl
}
