package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/use-agent/tenderscope/config"
)

// Event types.
const (
	EventGenerateCompleted = "generate.completed"
	EventGenerateFailed    = "generate.failed"
)

// SignatureHeader carries "sha256=<hex>" of the request body when a secret is set.
const SignatureHeader = "X-Tenderscope-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, jobID string, data any) *Event {
	return &Event{Type: eventType, JobID: jobID, Timestamp: time.Now().Unix(), Data: data}
}

// Notifier posts events to subscriber URLs.
type Notifier struct {
	client   *resty.Client
	retries  uint64
	interval time.Duration
}

// NewNotifier creates a Notifier from cfg.
func NewNotifier(cfg config.WebhookConfig) *Notifier {
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	return &Notifier{
		client: resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", "Tenderscope-Webhook/1.0"),
		retries:  uint64(retries),
		interval: cfg.InitialInterval,
	}
}

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event once.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if secret != "" {
		req.SetHeader(SignatureHeader, "sha256="+Sign(secret, body))
	}

	resp, err := req.Post(url)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode())
	}
	return nil
}

// DeliverWithRetry delivers event, retrying failed attempts with growing delays.
func (n *Notifier) DeliverWithRetry(ctx context.Context, url, secret string, event *Event) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.interval
	b.Multiplier = 5
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		return n.Deliver(ctx, url, secret, event)
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("webhook delivery failed",
			"url", url,
			"event", event.Type,
			"job_id", event.JobID,
			"attempt", attempt,
			"retry_in", next,
			"error", err,
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, n.retries), ctx), notify)
	if err != nil {
		slog.Error("webhook delivery exhausted all retries",
			"url", url,
			"event", event.Type,
			"job_id", event.JobID,
			"attempts", attempt,
		)
		return err
	}
	slog.Info("webhook delivered",
		"url", url,
		"event", event.Type,
		"job_id", event.JobID,
		"attempt", attempt,
	)
	return nil
}

// DeliverAsync runs DeliverWithRetry in the background.
func (n *Notifier) DeliverAsync(url, secret string, event *Event) {
	go func() {
		_ = n.DeliverWithRetry(context.Background(), url, secret, event)
	}()
}
