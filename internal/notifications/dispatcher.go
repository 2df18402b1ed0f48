package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DispatchRequest is the payload sent to the external notification service.
// The core only decides whether and to whom to notify; template rendering and
// delivery belong to the collaborator.
type DispatchRequest struct {
	RecipientID      string `json:"recipientId"`
	SenderName       string `json:"senderName"`
	MessageText      string `json:"messageText,omitempty"`
	CommentText      string `json:"commentText,omitempty"`
	ConversationID   string `json:"conversationId,omitempty"`
	IdeaID           string `json:"ideaId,omitempty"`
	NotificationType string `json:"notificationType"`
}

type dispatchResponse struct {
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Dispatcher calls the HTTP-shaped notification collaborator. A zero endpoint
// disables dispatch, which keeps local development quiet.
type Dispatcher struct {
	endpoint string
	client   *http.Client
}

func NewDispatcher(endpoint string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Dispatch sends one notification request. Returns whether the collaborator
// itself skipped delivery. Errors are for logging only; callers must never
// propagate them into the message send path.
func (d *Dispatcher) Dispatch(ctx context.Context, req *DispatchRequest) (skipped bool, err error) {
	if d.endpoint == "" {
		slog.Debug("notification dispatch disabled, no endpoint configured",
			"recipient", req.RecipientID, "type", req.NotificationType)
		return true, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("failed to encode dispatch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("notification dispatch failed: %w", err)
	}
	defer resp.Body.Close()

	var result dispatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode dispatch response: %w", err)
	}

	if !result.Success {
		return false, fmt.Errorf("notification service rejected dispatch: %s", result.Error)
	}
	return result.Skipped, nil
}
