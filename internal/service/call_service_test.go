package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"realtime-service/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeCallRepo struct {
	mu    sync.Mutex
	calls map[uuid.UUID]*domain.Call
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: make(map[uuid.UUID]*domain.Call)}
}

func (r *fakeCallRepo) Create(call *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if call.CallID == uuid.Nil {
		call.CallID = uuid.New()
	}
	copied := *call
	r.calls[call.CallID] = &copied
	return nil
}

func (r *fakeCallRepo) GetByID(callID uuid.UUID) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.calls[callID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *call
	return &copied, nil
}

func (r *fakeCallRepo) Update(call *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *call
	r.calls[call.CallID] = &copied
	return nil
}

func (r *fakeCallRepo) GetHistoryByUser(userID uuid.UUID, limit, offset int) ([]domain.Call, int64, error) {
	return nil, 0, nil
}

func newTestCallService() (CallService, *fakeCallRepo) {
	repo := newFakeCallRepo()
	return NewCallService(repo, zap.NewNop()), repo
}

func TestInitiateValidatesParties(t *testing.T) {
	svc, _ := newTestCallService()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Initiate(ctx, userID, userID, domain.CallTypeVoice, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Initiate(ctx, userID, uuid.Nil, domain.CallTypeVoice, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Initiate(ctx, userID, uuid.New(), "telepathy", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInitiateCreatesInitiatedCall(t *testing.T) {
	svc, _ := newTestCallService()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(context.Background(), caller, receiver, domain.CallTypeVideo, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatusInitiated, call.Status)
	assert.Nil(t, call.StartedAt)
	assert.Nil(t, call.EndedAt)
	assert.Nil(t, call.DurationSeconds)
}

func TestMarkRingingIsIdempotent(t *testing.T) {
	svc, _ := newTestCallService()
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)

	_, err = svc.MarkRinging(ctx, call.CallID, caller)
	assert.ErrorIs(t, err, domain.ErrAuthorization, "only the receiver acknowledges ringing")

	ringing, err := svc.MarkRinging(ctx, call.CallID, receiver)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatusRinging, ringing.Status)

	again, err := svc.MarkRinging(ctx, call.CallID, receiver)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatusRinging, again.Status)
}

func TestAcceptKeepsOriginalStartedAt(t *testing.T) {
	svc, repo := newTestCallService()
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)

	accepted, err := svc.Accept(ctx, call.CallID, receiver)
	require.NoError(t, err)
	require.NotNil(t, accepted.StartedAt)
	firstStart := *accepted.StartedAt

	// A duplicate accept from a second device must not shift the clock.
	time.Sleep(5 * time.Millisecond)
	again, err := svc.Accept(ctx, call.CallID, receiver)
	require.NoError(t, err)
	assert.Equal(t, firstStart, *again.StartedAt)

	stored, err := repo.GetByID(call.CallID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatusAccepted, stored.Status)
}

func TestAcceptRequiresReceiver(t *testing.T) {
	svc, _ := newTestCallService()
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)

	_, err = svc.Accept(ctx, call.CallID, caller)
	assert.ErrorIs(t, err, domain.ErrAuthorization)

	_, err = svc.Accept(ctx, call.CallID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestEndComputesDuration(t *testing.T) {
	svc, repo := newTestCallService()
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, call.CallID, receiver)
	require.NoError(t, err)

	ended, err := svc.End(ctx, call.CallID, caller)
	require.NoError(t, err)
	require.NotNil(t, ended.StartedAt)
	require.NotNil(t, ended.EndedAt)
	require.NotNil(t, ended.DurationSeconds)
	assert.GreaterOrEqual(t, *ended.DurationSeconds, int64(0))
	assert.Equal(t, int64(ended.EndedAt.Sub(*ended.StartedAt).Seconds()), *ended.DurationSeconds)

	stored, err := repo.GetByID(call.CallID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatusEnded, stored.Status)
}

func TestEndWithoutAnswerHasNoDuration(t *testing.T) {
	svc, _ := newTestCallService()
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)

	ended, err := svc.End(ctx, call.CallID, receiver)
	require.NoError(t, err)
	assert.Nil(t, ended.StartedAt)
	assert.NotNil(t, ended.EndedAt)
	assert.Nil(t, ended.DurationSeconds, "duration requires both timestamps")
}

func TestTerminalStatesRejectFurtherTransitions(t *testing.T) {
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	terminate := map[string]func(CallService, uuid.UUID) error{
		"reject": func(svc CallService, id uuid.UUID) error { _, err := svc.Reject(ctx, id, receiver); return err },
		"cancel": func(svc CallService, id uuid.UUID) error { _, err := svc.Cancel(ctx, id, caller); return err },
		"busy":   func(svc CallService, id uuid.UUID) error { _, err := svc.Busy(ctx, id, receiver); return err },
		"end":    func(svc CallService, id uuid.UUID) error { _, err := svc.End(ctx, id, caller); return err },
	}

	for name, fn := range terminate {
		t.Run(name, func(t *testing.T) {
			svc, _ := newTestCallService()
			call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
			require.NoError(t, err)
			require.NoError(t, fn(svc, call.CallID))

			// Every follow-up mutation must fail explicitly.
			_, err = svc.Accept(ctx, call.CallID, receiver)
			assert.ErrorIs(t, err, domain.ErrValidation)
			_, err = svc.End(ctx, call.CallID, caller)
			assert.ErrorIs(t, err, domain.ErrValidation)
			_, err = svc.Reject(ctx, call.CallID, receiver)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRingingTerminationRoles(t *testing.T) {
	svc, _ := newTestCallService()
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, call.CallID, receiver)
	assert.ErrorIs(t, err, domain.ErrAuthorization, "cancel belongs to the caller")

	_, err = svc.Reject(ctx, call.CallID, caller)
	assert.ErrorIs(t, err, domain.ErrAuthorization, "reject belongs to the receiver")

	_, err = svc.Busy(ctx, call.CallID, caller)
	assert.ErrorIs(t, err, domain.ErrAuthorization, "busy belongs to the receiver")
}

func TestRejectAfterAcceptFails(t *testing.T) {
	svc, _ := newTestCallService()
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)
	_, err = svc.Accept(ctx, call.CallID, receiver)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, call.CallID, receiver)
	assert.ErrorIs(t, err, ErrCallNotRinging)
}

func TestServerMissOnRingTimeout(t *testing.T) {
	svc, repo := newTestCallService()
	ctx := context.Background()
	caller, receiver := uuid.New(), uuid.New()

	call, err := svc.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)

	// uuid.Nil is the server acting on the expired ring timer.
	missed, err := svc.Miss(ctx, call.CallID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatusMissed, missed.Status)

	stored, err := repo.GetByID(call.CallID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatusMissed, stored.Status)

	// The timer losing the race against an accept must fail cleanly.
	svc2, _ := newTestCallService()
	call2, err := svc2.Initiate(ctx, caller, receiver, domain.CallTypeVoice, nil)
	require.NoError(t, err)
	_, err = svc2.Accept(ctx, call2.CallID, receiver)
	require.NoError(t, err)
	_, err = svc2.Miss(ctx, call2.CallID, uuid.Nil)
	assert.ErrorIs(t, err, ErrCallNotRinging)
}

func TestGetUnknownCall(t *testing.T) {
	svc, _ := newTestCallService()
	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrCallNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
