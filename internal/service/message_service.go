package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realtime-service/internal/client"
	"realtime-service/internal/domain"
	"realtime-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrMessageNotFound      = fmt.Errorf("%w: message", domain.ErrNotFound)
	ErrConversationNotFound = fmt.Errorf("%w: conversation", domain.ErrNotFound)
	ErrNotParticipant       = fmt.Errorf("%w: not a conversation participant", domain.ErrAuthorization)
	ErrNotMessageSender     = fmt.Errorf("%w: only the sender may delete a message", domain.ErrAuthorization)
	ErrNotMessageReceiver   = fmt.Errorf("%w: only the receiver may update message status", domain.ErrAuthorization)
	ErrEmptyMessage         = fmt.Errorf("%w: message needs text or attachments", domain.ErrValidation)
	ErrEmptyEmoji           = fmt.Errorf("%w: emoji is required", domain.ErrValidation)
)

type MessageService interface {
	CreateMessage(ctx context.Context, senderID uuid.UUID, input *domain.SendMessageInput) (*domain.Message, *domain.Conversation, error)
	MarkDelivered(ctx context.Context, messageID, actorID uuid.UUID) (*domain.Message, error)
	MarkRead(ctx context.Context, messageID, actorID uuid.UUID) (*domain.Message, error)
	ToggleReaction(ctx context.Context, messageID, actorID uuid.UUID, emoji string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, messageID, actorID uuid.UUID) (*domain.Message, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}

type messageService struct {
	messageRepo      repository.MessageRepository
	conversationRepo repository.ConversationRepository
	noti             client.NotificationDispatcher
	logger           *zap.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	conversationRepo repository.ConversationRepository,
	noti client.NotificationDispatcher,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		noti:             noti,
		logger:           logger,
	}
}

// CreateMessage persists a new message in the sender/receiver direct
// conversation, creating the conversation on first contact, and bumps the
// receiver's unread counter.
func (s *messageService) CreateMessage(ctx context.Context, senderID uuid.UUID, input *domain.SendMessageInput) (*domain.Message, *domain.Conversation, error) {
	if input.ReceiverID == uuid.Nil || input.ReceiverID == senderID {
		return nil, nil, fmt.Errorf("%w: invalid receiver", domain.ErrValidation)
	}
	if input.Text == "" && len(input.Attachments) == 0 {
		return nil, nil, ErrEmptyMessage
	}

	messageType := input.MessageType
	if messageType == "" {
		messageType = domain.MessageTypeText
	}

	conversation, err := s.conversationRepo.GetOrCreateDirect(senderID, input.ReceiverID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	message := &domain.Message{
		ConversationID: conversation.ConversationID,
		SenderID:       senderID,
		ReceiverID:     input.ReceiverID,
		MessageType:    messageType,
		Text:           input.Text,
		Attachments:    input.Attachments,
		ReplyToID:      input.ReplyTo,
		Status:         domain.MessageStatusSent,
		Reactions:      []domain.MessageReaction{},
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := s.conversationRepo.IncrementUnread(conversation.ConversationID, input.ReceiverID); err != nil {
		s.logger.Warn("failed to increment unread counter",
			zap.String("conversationId", conversation.ConversationID.String()),
			zap.Error(err))
	}

	// Side channel; failures must never fail the send.
	if s.noti != nil {
		if err := s.noti.NotifyNewMessage(ctx, input.ReceiverID.String(), senderID.String(),
			conversation.ConversationID.String(), preview(message)); err != nil {
			s.logger.Warn("failed to dispatch message notification", zap.Error(err))
		}
	}

	return message, conversation, nil
}

func (s *messageService) MarkDelivered(ctx context.Context, messageID, actorID uuid.UUID) (*domain.Message, error) {
	message, err := s.getMessage(messageID)
	if err != nil {
		return nil, err
	}
	if message.ReceiverID != actorID {
		return nil, ErrNotMessageReceiver
	}

	if message.Status != domain.MessageStatusSent {
		return message, nil
	}

	now := time.Now()
	message.Status = domain.MessageStatusDelivered
	message.DeliveredAt = &now
	if err := s.messageRepo.Update(message); err != nil {
		return nil, fmt.Errorf("failed to mark delivered: %w", err)
	}
	return message, nil
}

// MarkRead advances the message to READ and decrements the receiver's
// per-conversation unread counter. Already-read messages are a no-op.
func (s *messageService) MarkRead(ctx context.Context, messageID, actorID uuid.UUID) (*domain.Message, error) {
	message, err := s.getMessage(messageID)
	if err != nil {
		return nil, err
	}
	if message.ReceiverID != actorID {
		return nil, ErrNotMessageReceiver
	}

	if message.Status == domain.MessageStatusRead {
		return message, nil
	}

	now := time.Now()
	if message.DeliveredAt == nil {
		message.DeliveredAt = &now
	}
	message.Status = domain.MessageStatusRead
	message.ReadAt = &now
	if err := s.messageRepo.Update(message); err != nil {
		return nil, fmt.Errorf("failed to mark read: %w", err)
	}

	if err := s.conversationRepo.DecrementUnread(message.ConversationID, actorID); err != nil {
		s.logger.Warn("failed to decrement unread counter",
			zap.String("conversationId", message.ConversationID.String()),
			zap.Error(err))
	}

	return message, nil
}

// ToggleReaction adds the (actor, emoji) reaction or removes it if it is
// already present, and returns the message with the full updated list.
func (s *messageService) ToggleReaction(ctx context.Context, messageID, actorID uuid.UUID, emoji string) (*domain.Message, error) {
	if emoji == "" {
		return nil, ErrEmptyEmoji
	}

	message, err := s.getMessage(messageID)
	if err != nil {
		return nil, err
	}

	isParticipant, err := s.conversationRepo.IsParticipant(message.ConversationID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if !isParticipant {
		return nil, ErrNotParticipant
	}

	if err := s.messageRepo.ToggleReaction(messageID, actorID, emoji); err != nil {
		return nil, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	reactions, err := s.messageRepo.GetReactions(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reactions: %w", err)
	}
	message.Reactions = reactions
	return message, nil
}

func (s *messageService) DeleteMessage(ctx context.Context, messageID, actorID uuid.UUID) (*domain.Message, error) {
	message, err := s.getMessage(messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != actorID {
		return nil, ErrNotMessageSender
	}

	if err := s.messageRepo.Delete(messageID); err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}
	return message, nil
}

func (s *messageService) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	return s.conversationRepo.IsParticipant(conversationID, userID)
}

func (s *messageService) getMessage(messageID uuid.UUID) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return message, nil
}

func preview(m *domain.Message) string {
	if m.Text != "" {
		if len(m.Text) > 80 {
			return m.Text[:80]
		}
		return m.Text
	}
	return string(m.MessageType)
}
