package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type Resend struct {
	client *resend.Client
}

// NewResend returns an unconfigured backend when apiKey is empty.
func NewResend(apiKey string) *Resend {
	if apiKey == "" {
		return &Resend{}
	}
	return &Resend{client: resend.NewClient(apiKey)}
}

func (r *Resend) Name() string { return "resend" }

func (r *Resend) Configured() bool { return r.client != nil }

func (r *Resend) Send(ctx context.Context, msg Message) error {
	if r.client == nil {
		return fmt.Errorf("resend client not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.client.Emails.Send(&resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}
