// Package identity — контракт внешнего коллаборатора идентичности.
// Сервис чата не управляет аккаунтами; он только читает профиль
// и модераторскую способность.
package identity

import "context"

type User struct {
	ID          string
	DisplayName string
	Email       string
}

type Role struct {
	IsModerator bool
}

// Name — display_name, иначе email, иначе "Anonymous".
func (u *User) Name() string {
	if u == nil {
		return "Anonymous"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return "Anonymous"
}

type Directory interface {
	GetUser(ctx context.Context, userID string) (*User, error)
	GetRole(ctx context.Context, userID string) (Role, error)
}
