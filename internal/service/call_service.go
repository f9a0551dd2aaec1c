package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realtime-service/internal/domain"
	"realtime-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCallNotFound       = fmt.Errorf("%w: call", domain.ErrNotFound)
	ErrNotCallParticipant = fmt.Errorf("%w: not a participant of this call", domain.ErrAuthorization)
	ErrNotCallReceiver    = fmt.Errorf("%w: only the receiver may perform this action", domain.ErrAuthorization)
	ErrNotCallCaller      = fmt.Errorf("%w: only the caller may perform this action", domain.ErrAuthorization)
	ErrCallTerminal       = fmt.Errorf("%w: call is already in a terminal state", domain.ErrValidation)
	ErrCallNotRinging     = fmt.Errorf("%w: call is not awaiting an answer", domain.ErrValidation)
	ErrSelfCall           = fmt.Errorf("%w: caller and receiver must differ", domain.ErrValidation)
)

// CallService drives the per-call state machine over the call store. Every
// mutation verifies the acting identity against the call record before
// touching it.
type CallService interface {
	Initiate(ctx context.Context, callerID, receiverID uuid.UUID, callType domain.CallType, conversationID *uuid.UUID) (*domain.Call, error)
	Get(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	MarkRinging(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error)
	Accept(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error)
	Reject(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error)
	Cancel(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error)
	Busy(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error)
	// Miss marks the call missed; actorID may be uuid.Nil when the server
	// ring timer fires.
	Miss(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error)
	End(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error)
}

type callService struct {
	callRepo repository.CallRepository
	logger   *zap.Logger
}

func NewCallService(callRepo repository.CallRepository, logger *zap.Logger) CallService {
	return &callService{
		callRepo: callRepo,
		logger:   logger,
	}
}

func (s *callService) Initiate(ctx context.Context, callerID, receiverID uuid.UUID, callType domain.CallType, conversationID *uuid.UUID) (*domain.Call, error) {
	if callerID == uuid.Nil || receiverID == uuid.Nil || callerID == receiverID {
		return nil, ErrSelfCall
	}
	if callType != domain.CallTypeVoice && callType != domain.CallTypeVideo {
		return nil, fmt.Errorf("%w: unknown call type %q", domain.ErrValidation, callType)
	}

	call := &domain.Call{
		ConversationID: conversationID,
		CallerID:       callerID,
		ReceiverID:     receiverID,
		CallType:       callType,
		Status:         domain.CallStatusInitiated,
	}

	if err := s.callRepo.Create(call); err != nil {
		return nil, fmt.Errorf("failed to create call: %w", err)
	}

	s.logger.Info("call initiated",
		zap.String("callId", call.CallID.String()),
		zap.String("callerId", callerID.String()),
		zap.String("receiverId", receiverID.String()),
		zap.String("type", string(callType)))

	return call, nil
}

func (s *callService) Get(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	return s.getCall(callID)
}

// MarkRinging records that the receiver's client acknowledged the incoming
// call and is ready for signaling.
func (s *callService) MarkRinging(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}
	if call.ReceiverID != actorID {
		return nil, ErrNotCallReceiver
	}
	if call.Status.IsTerminal() {
		return nil, ErrCallTerminal
	}
	if call.Status == domain.CallStatusRinging || call.Status == domain.CallStatusAccepted {
		return call, nil
	}

	call.Status = domain.CallStatusRinging
	if err := s.callRepo.Update(call); err != nil {
		return nil, fmt.Errorf("failed to update call: %w", err)
	}
	return call, nil
}

// Accept moves the call to ACCEPTED. startedAt is set only if unset so a
// duplicate accept from a second device cannot shift the clock.
func (s *callService) Accept(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}
	if call.ReceiverID != actorID {
		return nil, ErrNotCallReceiver
	}
	if call.Status.IsTerminal() {
		return nil, ErrCallTerminal
	}

	call.Status = domain.CallStatusAccepted
	if call.StartedAt == nil {
		now := time.Now()
		call.StartedAt = &now
	}
	if err := s.callRepo.Update(call); err != nil {
		return nil, fmt.Errorf("failed to update call: %w", err)
	}
	return call, nil
}

func (s *callService) Reject(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error) {
	return s.terminateRinging(callID, actorID, domain.CallStatusRejected, roleReceiver)
}

func (s *callService) Cancel(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error) {
	return s.terminateRinging(callID, actorID, domain.CallStatusCancelled, roleCaller)
}

func (s *callService) Busy(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error) {
	return s.terminateRinging(callID, actorID, domain.CallStatusBusy, roleReceiver)
}

func (s *callService) Miss(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error) {
	return s.terminateRinging(callID, actorID, domain.CallStatusMissed, roleAny)
}

// End moves the call to ENDED from any non-terminal state, symmetric for
// both parties. Duration is computed iff the call was actually answered.
func (s *callService) End(ctx context.Context, callID, actorID uuid.UUID) (*domain.Call, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}
	if !call.IsParticipant(actorID) {
		return nil, ErrNotCallParticipant
	}
	if call.Status.IsTerminal() {
		return nil, ErrCallTerminal
	}

	now := time.Now()
	call.Status = domain.CallStatusEnded
	call.EndedAt = &now
	if call.StartedAt != nil {
		seconds := int64(now.Sub(*call.StartedAt).Seconds())
		if seconds < 0 {
			seconds = 0
		}
		call.DurationSeconds = &seconds
	}

	if err := s.callRepo.Update(call); err != nil {
		return nil, fmt.Errorf("failed to update call: %w", err)
	}

	s.logger.Info("call ended",
		zap.String("callId", call.CallID.String()),
		zap.Int64p("durationSeconds", call.DurationSeconds))

	return call, nil
}

type actorRole int

const (
	roleAny actorRole = iota
	roleCaller
	roleReceiver
)

// terminateRinging applies a pre-answer terminal status. Calls already
// answered or terminated are rejected with an explicit error, never
// silently overwritten.
func (s *callService) terminateRinging(callID, actorID uuid.UUID, status domain.CallStatus, role actorRole) (*domain.Call, error) {
	call, err := s.getCall(callID)
	if err != nil {
		return nil, err
	}

	// uuid.Nil is the server itself (ring timeout), only valid for MISSED.
	if actorID != uuid.Nil || status != domain.CallStatusMissed {
		if !call.IsParticipant(actorID) {
			return nil, ErrNotCallParticipant
		}
		switch role {
		case roleCaller:
			if call.CallerID != actorID {
				return nil, ErrNotCallCaller
			}
		case roleReceiver:
			if call.ReceiverID != actorID {
				return nil, ErrNotCallReceiver
			}
		}
	}

	if call.Status.IsTerminal() {
		return nil, ErrCallTerminal
	}
	if call.Status == domain.CallStatusAccepted {
		return nil, ErrCallNotRinging
	}

	now := time.Now()
	call.Status = status
	call.EndedAt = &now

	if err := s.callRepo.Update(call); err != nil {
		return nil, fmt.Errorf("failed to update call: %w", err)
	}
	return call, nil
}

func (s *callService) getCall(callID uuid.UUID) (*domain.Call, error) {
	call, err := s.callRepo.GetByID(callID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("failed to load call: %w", err)
	}
	return call, nil
}
