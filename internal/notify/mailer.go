package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/resend/resend-go/v2"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer submits one transactional email and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

type ResendMailer struct {
	client *resend.Client
	From   string
}

func NewResendMailer(apiKey, from string, timeout time.Duration) *ResendMailer {
	return &ResendMailer{
		client: resend.NewCustomClient(&http.Client{Timeout: timeout}, apiKey),
		From:   from,
	}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) (string, error) {
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", err
	}
	return sent.Id, nil
}
