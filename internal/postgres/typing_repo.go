package postgres

import (
	"context"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TypingRepository struct {
	db *pgxpool.Pool
}

func NewTypingRepository(db *pgxpool.Pool) *TypingRepository {
	return &TypingRepository{db: db}
}

// Upsert по паре (channel_id, user_id): повторный ввод освежает started_at.
func (r *TypingRepository) Upsert(ctx context.Context, m *domain.TypingMarker) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_typing (channel_id, user_id, username, started_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (channel_id, user_id)
		DO UPDATE SET username = EXCLUDED.username, started_at = now()`,
		m.ChannelID, m.UserID, m.Username)
	return err
}

func (r *TypingRepository) Delete(ctx context.Context, channelID, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM chat_typing WHERE channel_id=$1 AND user_id=$2`,
		channelID, userID)
	return err
}

// ListActive — страховка на чтении: маркер старше ttl не показываем,
// даже если write-side таймер его не успел убрать (рестарт процесса).
func (r *TypingRepository) ListActive(ctx context.Context, channelID string, ttl time.Duration) ([]domain.TypingMarker, error) {
	secs := int64(ttl / time.Second)
	if secs <= 0 {
		secs = 3
	}
	rows, err := r.db.Query(ctx, `
		SELECT channel_id, user_id, username, started_at
		FROM chat_typing
		WHERE channel_id = $1
		  AND started_at > now() - ($2::bigint * INTERVAL '1 second')
		ORDER BY started_at ASC`, channelID, secs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TypingMarker
	for rows.Next() {
		var m domain.TypingMarker
		if err := rows.Scan(&m.ChannelID, &m.UserID, &m.Username, &m.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
