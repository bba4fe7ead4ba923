package domain

import "time"

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
	PresenceAway    PresenceStatus = "away"
)

func (s PresenceStatus) Valid() bool {
	switch s {
	case PresenceOnline, PresenceOffline, PresenceAway:
		return true
	}
	return false
}

// PresenceRecord — одна строка на пользователя, upsert по user_id.
type PresenceRecord struct {
	UserID   string         `db:"user_id"`
	Username string         `db:"username"`
	Status   PresenceStatus `db:"status"`
	LastSeen time.Time      `db:"last_seen"`
}

// ActiveWithin — «онлайн» определяется на чтении по свежести last_seen,
// строки не удаляются.
func (p *PresenceRecord) ActiveWithin(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastSeen) < window
}
