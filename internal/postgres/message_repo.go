package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lee21-bot/crime-chat/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

const messageColumns = `id, channel_id, user_id, username, content, created_at,
	is_moderated, moderation_status, moderation_reason, moderated_by, moderated_at, idempotency_key`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	err := row.Scan(
		&m.ID, &m.ChannelID, &m.UserID, &m.Username, &m.Content, &m.CreatedAt,
		&m.IsModerated, &m.ModerationStatus, &m.ModerationReason, &m.ModeratedBy, &m.ModeratedAt, &m.IdempotencyKey,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Save — append-only вставка. Уникальный индекс по (channel_id, user_id,
// idempotency_key) превращает ретрай отправки в возврат уже сохранённой строки.
func (r *MessageRepository) Save(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO chat_messages (channel_id, user_id, username, content, moderation_status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (channel_id, user_id, idempotency_key) DO NOTHING
		RETURNING `+messageColumns,
		m.ChannelID, m.UserID, m.Username, m.Content, m.ModerationStatus, m.IdempotencyKey)

	saved, err := scanMessage(row)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// конфликт по ключу идемпотентности — уже сохранено, отдаём как есть
	row = r.db.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE channel_id=$1 AND user_id=$2 AND idempotency_key=$3`,
		m.ChannelID, m.UserID, m.IdempotencyKey)

	return scanMessage(row)
}

func (r *MessageRepository) Get(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM chat_messages WHERE id=$1`, id)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListRecent отдаёт последние сообщения канала newest-first;
// сортировку по возрастанию для отображения делает сервис.
func (r *MessageRepository) ListRecent(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+messageColumns+`
		FROM chat_messages
		WHERE channel_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// History возвращает историю сообщений канала с курсорной пагинацией (created_at,id DESC).
func (r *MessageRepository) History(ctx context.Context, channelID, after string, limit int) ([]domain.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(after)
	if err != nil {
		return nil, "", fmt.Errorf("decode cursor: %w", err)
	}

	const baseQuery = `
		SELECT ` + messageColumns + `
		FROM chat_messages
		WHERE channel_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, baseQuery, channelID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		if c, e := EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID}); e == nil {
			next = c
		}
	}
	return out, next, nil
}

// Moderate — переход статуса модерации; последняя запись выигрывает,
// детекции конфликтов нет.
func (r *MessageRepository) Moderate(ctx context.Context, messageID string, status domain.ModerationStatus, moderatorID string, reason *string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE chat_messages
		SET is_moderated = TRUE,
		    moderation_status = $2,
		    moderation_reason = $3,
		    moderated_by = $4,
		    moderated_at = now()
		WHERE id = $1`,
		messageID, status, reason, moderatorID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}
