package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xraph/cadence/id"
)

// DefaultSendGridURL is the SendGrid v3 mail send endpoint.
const DefaultSendGridURL = "https://api.sendgrid.com/v3/mail/send"

// DefaultSender is the From address used when none is configured.
const DefaultSender = "billing@saas-app.com"

// SendGridConfig configures a SendGrid mailer.
type SendGridConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	From    string        `json:"from" yaml:"from"`
	URL     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// SendGrid sends notifications through the SendGrid v3 HTTP API.
type SendGrid struct {
	cfg    SendGridConfig
	client *http.Client
}

// NewSendGrid returns a SendGrid mailer. A nil client uses a client with
// cfg.Timeout (default 10s).
func NewSendGrid(cfg SendGridConfig, client *http.Client) *SendGrid {
	if cfg.From == "" {
		cfg.From = DefaultSender
	}
	if cfg.URL == "" {
		cfg.URL = DefaultSendGridURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &SendGrid{cfg: cfg, client: client}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMessage struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// Notify implements Notifier.
func (s *SendGrid) Notify(ctx context.Context, kind Kind, email string, invoiceID id.InvoiceID) error {
	msg := sgMessage{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: email}}}},
		From:             sgAddress{Email: s.cfg.From},
		Subject:          kind.Subject(),
		Content:          []sgContent{{Type: "text/plain", Value: kind.Body(invoiceID)}},
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify/sendgrid: encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify/sendgrid: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify/sendgrid: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify/sendgrid: unexpected status %d", resp.StatusCode)
	}
	return nil
}
