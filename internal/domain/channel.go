package domain

import "time"

// Channel — статический раздел чата; ключ партиционирования
// для сообщений, typing-маркеров и presence.
type Channel struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
