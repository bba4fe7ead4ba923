package postgres

import (
	"context"
	"errors"

	"github.com/Lee21-bot/crime-chat/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Каналы статические (засеяны миграцией), динамического создания нет.
type ChannelRepository struct {
	db *pgxpool.Pool
}

func NewChannelRepository(db *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{db: db}
}

func (r *ChannelRepository) Get(ctx context.Context, id string) (*domain.Channel, error) {
	var ch domain.Channel
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM chat_channels WHERE id=$1`, id).
		Scan(&ch.ID, &ch.Name, &ch.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepository) List(ctx context.Context) ([]domain.Channel, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at FROM chat_channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
