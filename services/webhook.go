// services/webhook.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Milestone events posted to the automation webhook.
const (
	EventBadgeUnlocked = "badge_unlocked"
	EventPrestige      = "prestige"
)

type Milestone struct {
	Event    string    `json:"event"`
	UserID   string    `json:"user_id"`
	BadgeID  string    `json:"badge_id,omitempty"`
	Rank     string    `json:"rank,omitempty"`
	XPReward int64     `json:"xp_reward,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier receives milestone events. Implementations must not block the caller.
type Notifier interface {
	Notify(m Milestone)
}

// WebhookNotifier posts milestones to a Make.com scenario.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

// NewWebhookNotifier returns nil when url is empty; a nil notifier drops events.
func NewWebhookNotifier(url string) *WebhookNotifier {
	if url == "" {
		return nil
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Notify(m Milestone) {
	if w == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.Send(ctx, m); err != nil {
			log.Printf("⚠️ [WEBHOOK] %s for %s not delivered: %v", m.Event, m.UserID, err)
		}
	}()
}

// Send delivers one milestone synchronously.
func (w *WebhookNotifier) Send(ctx context.Context, m Milestone) error {
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
