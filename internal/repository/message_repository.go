package repository

import (
	"errors"
	"time"

	"realtime-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(message *domain.Message) error
	GetByID(messageID uuid.UUID) (*domain.Message, error)
	Update(message *domain.Message) error
	Delete(messageID uuid.UUID) error

	ToggleReaction(messageID, userID uuid.UUID, emoji string) error
	GetReactions(messageID uuid.UUID) ([]domain.MessageReaction, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *domain.Message) error {
	return r.db.Create(message).Error
}

func (r *messageRepository) GetByID(messageID uuid.UUID) (*domain.Message, error) {
	var message domain.Message
	err := r.db.Preload("Reactions").
		First(&message, "message_id = ?", messageID).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) Update(message *domain.Message) error {
	message.UpdatedAt = time.Now()
	return r.db.Save(message).Error
}

func (r *messageRepository) Delete(messageID uuid.UUID) error {
	return r.db.Delete(&domain.Message{}, "message_id = ?", messageID).Error
}

// ToggleReaction removes the (message, user, emoji) row if present,
// otherwise inserts it.
func (r *messageRepository) ToggleReaction(messageID, userID uuid.UUID, emoji string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.MessageReaction
		err := tx.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
			First(&existing).Error
		if err == nil {
			return tx.Delete(&existing).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		reaction := &domain.MessageReaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		}
		return tx.Create(reaction).Error
	})
}

func (r *messageRepository) GetReactions(messageID uuid.UUID) ([]domain.MessageReaction, error) {
	var reactions []domain.MessageReaction
	err := r.db.Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	return reactions, err
}
