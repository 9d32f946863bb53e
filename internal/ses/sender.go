// Package ses implements the broadcast send provider on AWS SES v2.
// It is the fallback used when Resend sending is not configured.
package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/converze/newsletter/internal/config"
)

// api is the slice of the SES v2 API the sender uses.
type api interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Sender delivers campaign emails through AWS SES v2.
type Sender struct {
	client     api
	from       string
	configured bool
}

// NewSender creates an SES sender with static credentials.
func NewSender(ctx context.Context, cfg appconfig.SESConfig, from string) (*Sender, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &Sender{
		client:     sesv2.NewFromConfig(awsCfg),
		from:       from,
		configured: cfg.AccessKey != "" && cfg.SecretKey != "",
	}, nil
}

// Name identifies this send provider.
func (s *Sender) Name() string { return "SES" }

// Configured reports whether credentials are present.
func (s *Sender) Configured() bool { return s.configured }

// Send delivers one message to one recipient.
func (s *Sender) Send(ctx context.Context, to, subject, html string) (string, error) {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html)},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sending via SES: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
