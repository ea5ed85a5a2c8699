// Package notify delivers operator notifications. Delivery is best-effort:
// a failed webhook never aborts trading logic, it is logged locally and
// dropped.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Sink receives notable session events as plain text. Implementations must
// be fire-and-forget from the caller's point of view.
type Sink interface {
	Notify(ctx context.Context, text string)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}

// Slack posts messages to a Slack incoming webhook.
type Slack struct {
	webhookURL string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewSlack(webhookURL string, log zerolog.Logger) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("comp", "notify").Logger(),
	}
}

// New returns a Slack sink when a webhook URL is configured, Nop otherwise.
func New(webhookURL string, log zerolog.Logger) Sink {
	if webhookURL == "" {
		return Nop{}
	}
	return NewSlack(webhookURL, log)
}

// Notify posts the text to the webhook. Failures are logged and swallowed.
func (s *Slack) Notify(ctx context.Context, text string) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		s.log.Error().Err(err).Msg("marshal webhook payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		s.log.Error().Err(err).Msg("create webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		s.log.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg(fmt.Sprintf("webhook returned %d", resp.StatusCode))
	}
}
