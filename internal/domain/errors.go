package domain

import "errors"

var (
	ErrChannelNotFound         = errors.New("channel not found")
	ErrMessageNotFound         = errors.New("message not found")
	ErrEmptyMessage            = errors.New("empty message")
	ErrMessageTooLong          = errors.New("message too long")
	ErrNotModerator            = errors.New("actor is not a moderator")
	ErrInvalidModerationStatus = errors.New("invalid moderation status")
	ErrInvalidPresenceStatus   = errors.New("invalid presence status")
	ErrUserNotFound            = errors.New("user not found")
)
