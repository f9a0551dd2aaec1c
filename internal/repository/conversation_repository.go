package repository

import (
	"errors"

	"realtime-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	GetByID(conversationID uuid.UUID) (*domain.Conversation, error)
	GetOrCreateDirect(userA, userB uuid.UUID) (*domain.Conversation, error)
	GetParticipants(conversationID uuid.UUID) ([]domain.ConversationParticipant, error)
	IsParticipant(conversationID, userID uuid.UUID) (bool, error)
	IncrementUnread(conversationID, userID uuid.UUID) error
	DecrementUnread(conversationID, userID uuid.UUID) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) GetByID(conversationID uuid.UUID) (*domain.Conversation, error) {
	var conversation domain.Conversation
	err := r.db.Preload("Participants").
		First(&conversation, "conversation_id = ?", conversationID).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// GetOrCreateDirect finds the direct conversation between two users or
// creates it with both participants.
func (r *conversationRepository) GetOrCreateDirect(userA, userB uuid.UUID) (*domain.Conversation, error) {
	var conversation domain.Conversation

	err := r.db.
		Joins("JOIN conversation_participants a ON a.conversation_id = conversations.conversation_id AND a.user_id = ?", userA).
		Joins("JOIN conversation_participants b ON b.conversation_id = conversations.conversation_id AND b.user_id = ?", userB).
		Preload("Participants").
		First(&conversation).Error
	if err == nil {
		return &conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conversation = domain.Conversation{}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}
		participants := []domain.ConversationParticipant{
			{ConversationID: conversation.ConversationID, UserID: userA},
			{ConversationID: conversation.ConversationID, UserID: userB},
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}
		conversation.Participants = participants
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) GetParticipants(conversationID uuid.UUID) ([]domain.ConversationParticipant, error) {
	var participants []domain.ConversationParticipant
	err := r.db.Where("conversation_id = ?", conversationID).
		Find(&participants).Error
	return participants, err
}

func (r *conversationRepository) IsParticipant(conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&domain.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *conversationRepository) IncrementUnread(conversationID, userID uuid.UUID) error {
	return r.db.Model(&domain.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
}

func (r *conversationRepository) DecrementUnread(conversationID, userID uuid.UUID) error {
	return r.db.Model(&domain.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ? AND unread_count > 0", conversationID, userID).
		UpdateColumn("unread_count", gorm.Expr("unread_count - 1")).Error
}
