// Package email delivers notification emails over SMTP.
package email

import (
	"context"

	"crm_backend/platform/config"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// Result describes the outcome of a send. Senders report failures here
// instead of returning an error so callers can never break on email.
type Result struct {
	Success       bool
	MessageID     string
	Err           error
	NotConfigured bool
}

type Sender interface {
	Send(ctx context.Context, msg Message) Result
}

// NoopSender is used when SMTP credentials are absent.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg Message) Result {
	return Result{NotConfigured: true}
}

// NewSender returns an SMTP sender when credentials are configured, otherwise a NoopSender.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailConfigured() {
		return NoopSender{}
	}
	from := cfg.GetEmailFromAddress()
	if from == "" {
		from = cfg.GetSMTPUsername()
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), from, cfg.GetEmailFromName())
}
