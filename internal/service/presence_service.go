package service

import (
	"context"

	"realtime-service/internal/database"
	"realtime-service/internal/domain"
	"realtime-service/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PresenceService persists online/offline transitions so the REST surface
// can answer presence reads. The connection registry stays authoritative
// for the live answer; store failures are logged, never propagated, so a
// slow database cannot block connect/disconnect handling.
type PresenceService interface {
	SetOnline(ctx context.Context, userID uuid.UUID) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	GetStatus(ctx context.Context, userID uuid.UUID) (*domain.UserPresence, error)
	GetOnline(ctx context.Context) ([]domain.UserPresence, error)
}

type presenceService struct {
	repo   repository.PresenceRepository
	redis  *redis.Client
	logger *zap.Logger
}

func NewPresenceService(repo repository.PresenceRepository, redisClient *redis.Client, logger *zap.Logger) PresenceService {
	return &presenceService{
		repo:   repo,
		redis:  redisClient,
		logger: logger,
	}
}

func (s *presenceService) SetOnline(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.SetStatus(userID, domain.PresenceOnline); err != nil {
		s.logger.Error("failed to persist online status",
			zap.String("userId", userID.String()), zap.Error(err))
	}
	if err := database.SetUserOnline(ctx, s.redis, userID.String()); err != nil {
		s.logger.Warn("failed to mirror online status to redis", zap.Error(err))
	}
	return nil
}

func (s *presenceService) SetOffline(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.SetStatus(userID, domain.PresenceOffline); err != nil {
		s.logger.Error("failed to persist offline status",
			zap.String("userId", userID.String()), zap.Error(err))
	}
	if err := database.SetUserOffline(ctx, s.redis, userID.String()); err != nil {
		s.logger.Warn("failed to clear redis presence mirror", zap.Error(err))
	}
	return nil
}

func (s *presenceService) GetStatus(ctx context.Context, userID uuid.UUID) (*domain.UserPresence, error) {
	return s.repo.GetStatus(userID)
}

func (s *presenceService) GetOnline(ctx context.Context) ([]domain.UserPresence, error) {
	return s.repo.GetOnline()
}
