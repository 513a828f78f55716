package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/testboard/internal/model"
)

// WebhookSink は監査ログをJSONで外部URLにPOSTするSink。
// 一時的な失敗（429/5xx/通信エラー）は指数バックオフで再送する。
type WebhookSink struct {
	url    string
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewWebhookSink はWebhookSinkを生成する。
// clientには本番ではsecurity.WebhookGuard.NewClientで生成したクライアントを渡す。
func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: client,
		sleep:  sleepContext,
	}
}

// Name はSink名を返す。
func (s *WebhookSink) Name() string { return "webhook" }

// webhookPayload はWebhookに送信するJSONの形式。
type webhookPayload struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId"`
	OldValues json.RawMessage `json:"oldValues,omitempty"`
	NewValues json.RawMessage `json:"newValues,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Write は監査ログを送信する。最大maxAttempts回まで試行する。
func (s *WebhookSink) Write(ctx context.Context, rec *model.AuditRecord) error {
	body, err := json.Marshal(webhookPayload{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Action:    string(rec.Action),
		Entity:    rec.Entity,
		EntityID:  rec.EntityID,
		OldValues: rec.OldValues,
		NewValues: rec.NewValues,
		Metadata:  rec.Metadata,
		CreatedAt: rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, CalculateBackoff(attempt-1)); err != nil {
				return fmt.Errorf("webhook retry aborted: %w", err)
			}
		}

		result, err := s.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if result == DeliveryReject {
			return err
		}
	}
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", maxAttempts, lastErr)
}

func (s *WebhookSink) post(ctx context.Context, body []byte) (DeliveryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return DeliveryReject, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "testboard-audit/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return DeliveryRetry, fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	result := ClassifyHTTPStatus(resp.StatusCode)
	if result == DeliveryOK {
		return result, nil
	}
	return result, fmt.Errorf("webhook responded with status %d", resp.StatusCode)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ Sink = (*WebhookSink)(nil)
