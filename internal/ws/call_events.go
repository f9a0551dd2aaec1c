package ws

import (
	"context"
	"encoding/json"
	"time"

	"realtime-service/internal/domain"
	"realtime-service/internal/middleware"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// handleCallInitiate creates the call record, parks the caller's SDP offer
// until the receiver signals readiness and arms the ring timer. The
// receiver's personal channel gets call-incoming; the caller's connection
// gets the call-initiated ack with the assigned id.
func (g *Gateway) handleCallInitiate(ctx context.Context, client *Client, data json.RawMessage) error {
	var req callInitiateData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	call, err := g.calls.Initiate(ctx, client.userID, req.ReceiverID, req.Type, req.ConversationID)
	if err != nil {
		return err
	}
	middleware.RecordCallInitiated(string(call.CallType))

	if len(req.Offer) > 0 {
		g.callMu.Lock()
		g.pendingOffers[call.CallID] = req.Offer
		g.callMu.Unlock()
	}
	g.armRingTimer(call.CallID)

	payload, err := marshalEvent(EventCallIncoming, callIncomingData{Call: call, Offer: req.Offer})
	if err != nil {
		return err
	}
	if g.hub.SendToUser(call.ReceiverID, payload) == 0 {
		g.logger.Info("call receiver offline",
			zap.String("callId", call.CallID.String()),
			zap.String("receiverId", call.ReceiverID.String()))
		// Push notification is the only way an offline receiver can learn
		// of the call before the ring timer expires.
		if g.noti != nil {
			if err := g.noti.NotifyIncomingCall(ctx, call.ReceiverID.String(),
				call.CallerID.String(), call.CallID.String(), string(call.CallType)); err != nil {
				g.logger.Warn("failed to dispatch call notification", zap.Error(err))
			}
		}
	}

	g.sendEvent(client, EventCallInitiated, call)
	return nil
}

// handleCallReady is the receiver's readiness ack: the call moves to
// RINGING, the caller hears call-ringing and the parked offer is forwarded.
// Retransmitting on the ack instead of after a fixed delay means a slow
// receiver still gets the offer once its handlers are installed.
func (g *Gateway) handleCallReady(ctx context.Context, client *Client, data json.RawMessage) error {
	var req callIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	call, err := g.calls.MarkRinging(ctx, req.CallID, client.userID)
	if err != nil {
		return err
	}

	payload, err := marshalEvent(EventCallRinging, callIDData{CallID: call.CallID})
	if err != nil {
		return err
	}
	g.hub.SendToUser(call.CallerID, payload)

	g.callMu.Lock()
	offer, ok := g.pendingOffers[call.CallID]
	delete(g.pendingOffers, call.CallID)
	g.callMu.Unlock()
	if ok {
		relay, err := marshalEvent(EventSignalOffer, signalRelayData{
			CallID:   call.CallID,
			SenderID: call.CallerID,
			Payload:  offer,
		})
		if err != nil {
			return err
		}
		g.hub.SendToUser(call.ReceiverID, relay)
	}
	return nil
}

func (g *Gateway) handleCallAccept(ctx context.Context, client *Client, data json.RawMessage) error {
	var req callAcceptData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	call, err := g.calls.Accept(ctx, req.CallID, client.userID)
	if err != nil {
		return err
	}
	g.clearCallState(call.CallID)

	payload, err := marshalEvent(EventCallAccepted, callAcceptedData{Call: call, Answer: req.Answer})
	if err != nil {
		return err
	}
	g.hub.SendToUser(call.CallerID, payload)

	g.sendEvent(client, EventCallAcceptedAck, call)
	return nil
}

func (g *Gateway) handleCallReject(ctx context.Context, client *Client, data json.RawMessage) error {
	var req callIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	call, err := g.calls.Reject(ctx, req.CallID, client.userID)
	if err != nil {
		return err
	}
	g.clearCallState(call.CallID)
	return g.notifyUser(call.CallerID, EventCallRejected, call)
}

func (g *Gateway) handleCallCancel(ctx context.Context, client *Client, data json.RawMessage) error {
	var req callIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	call, err := g.calls.Cancel(ctx, req.CallID, client.userID)
	if err != nil {
		return err
	}
	g.clearCallState(call.CallID)
	return g.notifyUser(call.ReceiverID, EventCallCancelled, call)
}

func (g *Gateway) handleCallBusy(ctx context.Context, client *Client, data json.RawMessage) error {
	var req callIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	call, err := g.calls.Busy(ctx, req.CallID, client.userID)
	if err != nil {
		return err
	}
	g.clearCallState(call.CallID)
	return g.notifyUser(call.CallerID, EventCallBusyNotice, call)
}

func (g *Gateway) handleCallMissed(ctx context.Context, client *Client, data json.RawMessage) error {
	var req callIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	call, err := g.calls.Miss(ctx, req.CallID, client.userID)
	if err != nil {
		return err
	}
	g.clearCallState(call.CallID)
	return g.notifyBothParties(call, EventCallMissed)
}

// handleCallEnd terminates an answered (or still ringing) call; both
// parties get call-ended carrying the final record with duration, and the
// acting connection additionally gets an ack.
func (g *Gateway) handleCallEnd(ctx context.Context, client *Client, data json.RawMessage) error {
	var req callIDData
	if err := unmarshalData(data, &req); err != nil {
		return err
	}

	call, err := g.calls.End(ctx, req.CallID, client.userID)
	if err != nil {
		return err
	}
	g.clearCallState(call.CallID)

	if err := g.notifyBothParties(call, EventCallEnded); err != nil {
		return err
	}
	g.sendEvent(client, EventCallEndAck, call)
	return nil
}

// armRingTimer schedules the unanswered-call expiry. When it fires the
// call is missed by the server itself and both parties are told.
func (g *Gateway) armRingTimer(callID uuid.UUID) {
	timeout := g.cfg.RingTimeout()
	if timeout <= 0 {
		return
	}

	g.callMu.Lock()
	g.ringTimers[callID] = time.AfterFunc(timeout, func() {
		g.clearCallState(callID)

		call, err := g.calls.Miss(context.Background(), callID, uuid.Nil)
		if err != nil {
			// Lost the race with an accept or an explicit termination.
			g.logger.Debug("ring timeout no-op", zap.String("callId", callID.String()), zap.Error(err))
			return
		}

		g.logger.Info("call missed on ring timeout", zap.String("callId", callID.String()))
		if err := g.notifyBothParties(call, EventCallMissed); err != nil {
			g.logger.Warn("failed to notify missed call", zap.Error(err))
		}
	})
	g.callMu.Unlock()
}

// clearCallState drops the parked offer and stops the ring timer.
func (g *Gateway) clearCallState(callID uuid.UUID) {
	g.callMu.Lock()
	defer g.callMu.Unlock()

	delete(g.pendingOffers, callID)
	if timer, ok := g.ringTimers[callID]; ok {
		timer.Stop()
		delete(g.ringTimers, callID)
	}
}

func (g *Gateway) notifyUser(userID uuid.UUID, eventType string, call *domain.Call) error {
	payload, err := marshalEvent(eventType, call)
	if err != nil {
		return err
	}
	g.hub.SendToUser(userID, payload)
	return nil
}

func (g *Gateway) notifyBothParties(call *domain.Call, eventType string) error {
	payload, err := marshalEvent(eventType, call)
	if err != nil {
		return err
	}
	g.hub.SendToUser(call.CallerID, payload)
	g.hub.SendToUser(call.ReceiverID, payload)
	return nil
}
