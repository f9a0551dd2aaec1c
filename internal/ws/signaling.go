package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"realtime-service/internal/domain"
	"realtime-service/internal/middleware"
	"realtime-service/internal/service"

	"go.uber.org/zap"
)

// handleSignal relays one SDP/ICE frame between the two parties of a call.
// The payload is opaque; only the envelope is validated. The sender must be
// a participant and the target must be the sender's counterpart, so a
// connection can never inject signaling into someone else's call. An
// offline target drops the frame silently; ICE layers retry on their own.
func (g *Gateway) handleSignal(ctx context.Context, client *Client, eventType string, data json.RawMessage) error {
	var req signalData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}
	if len(req.Payload) == 0 {
		return fmt.Errorf("%w: signal payload is required", domain.ErrValidation)
	}

	call, err := g.calls.Get(ctx, req.CallID)
	if err != nil {
		return err
	}
	if !call.IsParticipant(client.userID) {
		return service.ErrNotCallParticipant
	}
	if req.TargetUserID != call.Counterpart(client.userID) {
		return fmt.Errorf("%w: target is not the call counterpart", domain.ErrAuthorization)
	}

	payload, err := marshalEvent(eventType, signalRelayData{
		CallID:   call.CallID,
		SenderID: client.userID,
		Payload:  req.Payload,
	})
	if err != nil {
		return err
	}

	delivered := g.hub.SendToUser(req.TargetUserID, payload)
	middleware.RecordSignalRelayed(eventType)
	if delivered == 0 {
		g.logger.Debug("signal dropped, target offline",
			zap.String("callId", call.CallID.String()))
	}
	return nil
}
