package service

import (
	"context"

	"github.com/Lee21-bot/crime-chat/internal/domain"
)

type ChannelRepository interface {
	Get(ctx context.Context, id string) (*domain.Channel, error)
	List(ctx context.Context) ([]domain.Channel, error)
}

type ChannelService struct {
	repo ChannelRepository
}

func NewChannelService(repo ChannelRepository) *ChannelService {
	return &ChannelService{repo: repo}
}

func (s *ChannelService) GetChannel(ctx context.Context, id string) (*domain.Channel, error) {
	return s.repo.Get(ctx, id)
}

func (s *ChannelService) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	return s.repo.List(ctx)
}
