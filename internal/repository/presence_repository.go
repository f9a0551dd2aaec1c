package repository

import (
	"time"

	"realtime-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PresenceRepository interface {
	SetStatus(userID uuid.UUID, status domain.PresenceStatus) error
	GetStatus(userID uuid.UUID) (*domain.UserPresence, error)
	GetOnline() ([]domain.UserPresence, error)
}

type presenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &presenceRepository{db: db}
}

func (r *presenceRepository) SetStatus(userID uuid.UUID, status domain.PresenceStatus) error {
	presence := &domain.UserPresence{
		UserID:   userID,
		Status:   status,
		LastSeen: time.Now(),
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_seen"}),
	}).Create(presence).Error
}

func (r *presenceRepository) GetStatus(userID uuid.UUID) (*domain.UserPresence, error) {
	var presence domain.UserPresence
	err := r.db.First(&presence, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &presence, nil
}

func (r *presenceRepository) GetOnline() ([]domain.UserPresence, error) {
	var presences []domain.UserPresence
	err := r.db.Where("status = ?", domain.PresenceOnline).
		Find(&presences).Error
	return presences, err
}
