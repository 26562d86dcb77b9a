package email

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type SES struct {
	client *sesv2.Client
	region string
}

// NewSES loads the default AWS credential chain for region. A load failure
// yields an unconfigured backend and the error, so callers may continue without SES.
func NewSES(ctx context.Context, region string) (*SES, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return &SES{region: region}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SES{client: sesv2.NewFromConfig(cfg), region: region}, nil
}

func (s *SES) Name() string { return "ses" }

func (s *SES) Configured() bool { return s.client != nil }

func (s *SES) Send(ctx context.Context, msg Message) error {
	if s.client == nil {
		return fmt.Errorf("SES client not initialized")
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: &msg.From,
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &msg.Subject},
				Body:    &types.Body{Text: &types.Content{Data: &msg.Body}},
			},
		},
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("SES send failed: %w", err)
	}
	return nil
}
