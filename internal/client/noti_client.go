package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotificationDispatcher is the push/email side channel. Dispatch failures
// must never fail the primary relay action; callers log and continue.
type NotificationDispatcher interface {
	NotifyNewMessage(ctx context.Context, userID, senderID, conversationID, preview string) error
	NotifyIncomingCall(ctx context.Context, userID, callerID, callID, callType string) error
}

type notiClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewNotificationDispatcher(baseURL string, timeout time.Duration) NotificationDispatcher {
	return &notiClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *notiClient) NotifyNewMessage(ctx context.Context, userID, senderID, conversationID, preview string) error {
	return c.post(ctx, "/api/notifications/message", map[string]string{
		"userId":         userID,
		"senderId":       senderID,
		"conversationId": conversationID,
		"preview":        preview,
	})
}

func (c *notiClient) NotifyIncomingCall(ctx context.Context, userID, callerID, callID, callType string) error {
	return c.post(ctx, "/api/notifications/call", map[string]string{
		"userId":   userID,
		"callerId": callerID,
		"callId":   callID,
		"callType": callType,
	})
}

func (c *notiClient) post(ctx context.Context, path string, body map[string]string) error {
	if c.baseURL == "" {
		return nil
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification dispatch failed: status=%d", resp.StatusCode)
	}
	return nil
}
