package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"
)

type TypingRepository interface {
	Upsert(ctx context.Context, m *domain.TypingMarker) error
	Delete(ctx context.Context, channelID, userID string) error
	ListActive(ctx context.Context, channelID string, ttl time.Duration) ([]domain.TypingMarker, error)
}

type typingKey struct {
	channelID string
	userID    string
}

// TypingService — эфемерный реестр «печатает…». Снятие маркера делает
// write-side таймер на пару (канал, пользователь): повторный ввод
// перевзводит таймер, явный isTyping=false снимает сразу.
type TypingService struct {
	repo TypingRepository
	ttl  time.Duration

	mu     sync.Mutex
	timers map[typingKey]*time.Timer
	closed bool

	// опциональный хук после изменения маркеров (ws-пуш)
	onChange func(channelID string)
}

func NewTypingService(repo TypingRepository) *TypingService {
	return &TypingService{
		repo:   repo,
		ttl:    3 * time.Second,
		timers: make(map[typingKey]*time.Timer),
	}
}

func (s *TypingService) SetTTL(d time.Duration) {
	if d > 0 {
		s.ttl = d
	}
}

func (s *TypingService) TTL() time.Duration { return s.ttl }

func (s *TypingService) OnChange(fn func(channelID string)) { s.onChange = fn }

func (s *TypingService) SetTyping(ctx context.Context, channelID, userID, username string, isTyping bool) error {
	key := typingKey{channelID: channelID, userID: userID}

	if !isTyping {
		s.cancelTimer(key)
		if err := s.repo.Delete(ctx, channelID, userID); err != nil {
			return err
		}
		s.notify(channelID)
		return nil
	}

	err := s.repo.Upsert(ctx, &domain.TypingMarker{
		ChannelID: channelID,
		UserID:    userID,
		Username:  username,
		StartedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	s.armTimer(key)
	s.notify(channelID)
	return nil
}

func (s *TypingService) ListActive(ctx context.Context, channelID string) ([]domain.TypingMarker, error) {
	return s.repo.ListActive(ctx, channelID, s.ttl)
}

// Close снимает все взведённые таймеры; вызывается на teardown сервиса.
func (s *TypingService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *TypingService) armTimer(key typingKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.timers[key]; ok {
		prev.Stop()
	}
	s.timers[key] = time.AfterFunc(s.ttl, func() { s.expire(key) })
}

func (s *TypingService) cancelTimer(key typingKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *TypingService) expire(key typingKey) {
	s.mu.Lock()
	delete(s.timers, key)
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.Delete(ctx, key.channelID, key.userID); err != nil {
		slog.Debug("typing expire delete failed", "channel", key.channelID, "user", key.userID, "err", err)
		return
	}
	s.notify(key.channelID)
}

func (s *TypingService) notify(channelID string) {
	if s.onChange != nil {
		s.onChange(channelID)
	}
}
