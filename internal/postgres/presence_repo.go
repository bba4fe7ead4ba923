package postgres

import (
	"context"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PresenceRepository struct {
	db *pgxpool.Pool
}

func NewPresenceRepository(db *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Upsert по user_id: heartbeat всегда освежает last_seen.
// Две быстрые подряд дают ровно одну строку.
func (r *PresenceRepository) Upsert(ctx context.Context, rec *domain.PresenceRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_presence (user_id, username, status, last_seen)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id)
		DO UPDATE SET username = EXCLUDED.username, status = EXCLUDED.status, last_seen = now()`,
		rec.UserID, rec.Username, rec.Status)
	return err
}

// ListOnline — окно свежести оценивается на чтении; серверного
// вычищения протухших строк нет, они просто копятся.
func (r *PresenceRepository) ListOnline(ctx context.Context, window time.Duration) ([]domain.PresenceRecord, error) {
	secs := int64(window / time.Second)
	if secs <= 0 {
		secs = 300
	}
	rows, err := r.db.Query(ctx, `
		SELECT user_id, username, status, last_seen
		FROM chat_presence
		WHERE last_seen >= now() - ($1::bigint * INTERVAL '1 second')
		ORDER BY username`, secs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PresenceRecord
	for rows.Next() {
		var p domain.PresenceRecord
		if err := rows.Scan(&p.UserID, &p.Username, &p.Status, &p.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
