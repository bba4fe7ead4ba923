package service

import (
	"context"
	"sort"
	"strings"

	"github.com/Lee21-bot/crime-chat/internal/domain"
	"github.com/Lee21-bot/crime-chat/internal/identity"
	"github.com/Lee21-bot/crime-chat/internal/metrics"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Save(ctx context.Context, m *domain.Message) (*domain.Message, error)
	Get(ctx context.Context, id string) (*domain.Message, error)
	ListRecent(ctx context.Context, channelID string, limit int) ([]domain.Message, error)
	History(ctx context.Context, channelID, after string, limit int) ([]domain.Message, string, error)
	Moderate(ctx context.Context, messageID string, status domain.ModerationStatus, moderatorID string, reason *string) error
}

type RoleChecker interface {
	GetRole(ctx context.Context, userID string) (identity.Role, error)
}

type MessageService struct {
	repo  MessageRepository
	roles RoleChecker

	maxLen        int
	defaultStatus domain.ModerationStatus
}

func NewMessageService(repo MessageRepository, roles RoleChecker) *MessageService {
	return &MessageService{
		repo:          repo,
		roles:         roles,
		maxLen:        4000,
		defaultStatus: domain.ModerationApproved, // текущая политика; см. SetDefaultStatus
	}
}

func (s *MessageService) SetMaxLen(n int) {
	if n > 0 {
		s.maxLen = n
	}
}

// SetDefaultStatus позволяет включить pre-moderation (pending) без изменения кода.
func (s *MessageService) SetDefaultStatus(st domain.ModerationStatus) {
	if st == domain.ModerationApproved || st == domain.ModerationPending {
		s.defaultStatus = st
	}
}

// Send валидирует и сохраняет сообщение. Ключ идемпотентности генерирует
// клиент; пустой ключ заменяем свежим, чтобы ретраи без ключа не склеились.
func (s *MessageService) Send(ctx context.Context, channelID, userID, username, content, idempotencyKey string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrEmptyMessage
	}
	if len(content) > s.maxLen {
		return nil, domain.ErrMessageTooLong
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		idempotencyKey = uuid.New().String()
	}

	msg, err := s.repo.Save(ctx, &domain.Message{
		ChannelID:        channelID,
		UserID:           userID,
		Username:         username,
		Content:          content,
		ModerationStatus: s.defaultStatus,
		IdempotencyKey:   idempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	metrics.MessagesAppended.Inc()
	return msg, nil
}

// ListRecent отдаёт сообщения канала oldest→newest. Стор возвращает
// newest-first; пересортировка по возрастанию — обязательное постусловие.
// Контент отклонённых сообщений заменяется заглушкой для всех читателей,
// метаданные модерации остаются видимыми.
func (s *MessageService) ListRecent(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	msgs, err := s.repo.ListRecent(ctx, channelID, limit)
	if err != nil {
		return nil, err
	}
	sortAscending(msgs)
	redactRejected(msgs)
	return msgs, nil
}

// History — курсорная пагинация для скроллбэка (newest-first + next cursor).
func (s *MessageService) History(ctx context.Context, channelID, after string, limit int) ([]domain.Message, string, error) {
	msgs, next, err := s.repo.History(ctx, channelID, after, limit)
	if err != nil {
		return nil, "", err
	}
	redactRejected(msgs)
	return msgs, next, nil
}

// Moderate — авторитетная проверка модераторской способности на границе
// стора; клиентская проверка — только UX. Повторная модерация уже
// отмодерированного сообщения разрешена, гонки решает последняя запись.
func (s *MessageService) Moderate(ctx context.Context, messageID string, status domain.ModerationStatus, moderatorID string, reason *string) error {
	if status != domain.ModerationApproved && status != domain.ModerationRejected {
		return domain.ErrInvalidModerationStatus
	}

	role, err := s.roles.GetRole(ctx, moderatorID)
	if err != nil {
		return err
	}
	if !role.IsModerator {
		return domain.ErrNotModerator
	}

	if err := s.repo.Moderate(ctx, messageID, status, moderatorID, reason); err != nil {
		return err
	}
	metrics.ModerationTransitions.WithLabelValues(string(status)).Inc()
	return nil
}

// сортировка по (created_at, id): порядок отображения восстанавливается
// из времени создания, ровные timestamp-ы добивает id
func sortAscending(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

func redactRejected(msgs []domain.Message) {
	for i := range msgs {
		if msgs[i].Rejected() {
			msgs[i].Content = domain.RejectedPlaceholder
		}
	}
}
