package service

import (
	"context"
	"time"

	"github.com/Lee21-bot/crime-chat/internal/domain"
)

type PresenceRepository interface {
	Upsert(ctx context.Context, rec *domain.PresenceRecord) error
	ListOnline(ctx context.Context, window time.Duration) ([]domain.PresenceRecord, error)
}

type PresenceService struct {
	repo   PresenceRepository
	window time.Duration
}

func NewPresenceService(repo PresenceRepository) *PresenceService {
	return &PresenceService{
		repo:   repo,
		window: 5 * time.Minute, // окно «онлайн»
	}
}

func (s *PresenceService) SetWindow(d time.Duration) {
	if d > 0 {
		s.window = d
	}
}

func (s *PresenceService) Window() time.Duration { return s.window }

// Heartbeat — upsert по user_id, last_seen всегда освежается.
// Переход в offline — best-effort и только совещательный:
// источником истины остаётся свежесть last_seen.
func (s *PresenceService) Heartbeat(ctx context.Context, userID, username string, status domain.PresenceStatus) error {
	if status == "" {
		status = domain.PresenceOnline
	}
	if !status.Valid() {
		return domain.ErrInvalidPresenceStatus
	}
	return s.repo.Upsert(ctx, &domain.PresenceRecord{
		UserID:   userID,
		Username: username,
		Status:   status,
		LastSeen: time.Now(),
	})
}

func (s *PresenceService) ListOnline(ctx context.Context) ([]domain.PresenceRecord, error) {
	return s.repo.ListOnline(ctx, s.window)
}
