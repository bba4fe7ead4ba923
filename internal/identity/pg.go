package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/Lee21-bot/crime-chat/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgDirectory читает профили из таблицы стора идентичности.
// Модератор — либо флаг is_moderator, либо почта в админском домене.
type PgDirectory struct {
	db          *pgxpool.Pool
	adminDomain string
}

func NewPgDirectory(db *pgxpool.Pool, adminDomain string) *PgDirectory {
	return &PgDirectory{db: db, adminDomain: strings.TrimPrefix(adminDomain, "@")}
}

func (d *PgDirectory) GetUser(ctx context.Context, userID string) (*User, error) {
	var u User
	var displayName, email *string
	err := d.db.QueryRow(ctx,
		`SELECT user_id, display_name, email FROM user_profiles WHERE user_id=$1`, userID).
		Scan(&u.ID, &displayName, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if displayName != nil {
		u.DisplayName = *displayName
	}
	if email != nil {
		u.Email = *email
	}
	return &u, nil
}

func (d *PgDirectory) GetRole(ctx context.Context, userID string) (Role, error) {
	var isModerator bool
	var email *string
	err := d.db.QueryRow(ctx,
		`SELECT is_moderator, email FROM user_profiles WHERE user_id=$1`, userID).
		Scan(&isModerator, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// неизвестный пользователь — не модератор
			return Role{}, nil
		}
		return Role{}, err
	}
	if !isModerator && email != nil && d.adminDomain != "" {
		isModerator = strings.HasSuffix(strings.ToLower(*email), "@"+strings.ToLower(d.adminDomain))
	}
	return Role{IsModerator: isModerator}, nil
}
