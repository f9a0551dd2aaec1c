package repository

import (
	"realtime-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CallRepository interface {
	Create(call *domain.Call) error
	GetByID(callID uuid.UUID) (*domain.Call, error)
	Update(call *domain.Call) error
	GetHistoryByUser(userID uuid.UUID, limit, offset int) ([]domain.Call, int64, error)
}

type callRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) CallRepository {
	return &callRepository{db: db}
}

func (r *callRepository) Create(call *domain.Call) error {
	return r.db.Create(call).Error
}

func (r *callRepository) GetByID(callID uuid.UUID) (*domain.Call, error) {
	var call domain.Call
	err := r.db.First(&call, "call_id = ?", callID).Error
	if err != nil {
		return nil, err
	}
	return &call, nil
}

func (r *callRepository) Update(call *domain.Call) error {
	return r.db.Save(call).Error
}

func (r *callRepository) GetHistoryByUser(userID uuid.UUID, limit, offset int) ([]domain.Call, int64, error) {
	var calls []domain.Call
	var total int64

	query := r.db.Model(&domain.Call{}).
		Where("caller_id = ? OR receiver_id = ?", userID, userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&calls).Error

	return calls, total, err
}
