package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SecurityNotifier sends out-of-band alerts for security-sensitive events.
// Delivery is best-effort; callers log failures and continue.
type SecurityNotifier interface {
	NotifyLockout(ctx context.Context, email, ipAddress string, blockedUntil time.Time) error
	NotifyMFAChanged(ctx context.Context, email, event string) error
}

// AWSSESNotifier sends security alerts using AWS SES
type AWSSESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESNotifier creates a new AWS SES notifier
func NewAWSSESNotifier(region, fromAddress string, logger *slog.Logger) (*AWSSESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// NotifyLockout alerts an account holder that failed logins locked the account
func (n *AWSSESNotifier) NotifyLockout(ctx context.Context, email, ipAddress string, blockedUntil time.Time) error {
	subject := "Security alert: sign-in temporarily locked"
	body := fmt.Sprintf(
		"Repeated failed sign-in attempts were detected for your account from IP %s.\n\n"+
			"Sign-in is locked until %s. If this wasn't you, no action is needed; "+
			"consider changing your password once the lock expires.\n",
		ipAddress, blockedUntil.Format(time.RFC1123),
	)

	return n.send(ctx, email, subject, body)
}

// NotifyMFAChanged alerts an account holder about an MFA configuration change
func (n *AWSSESNotifier) NotifyMFAChanged(ctx context.Context, email, event string) error {
	subject := "Security alert: two-factor authentication " + event
	body := fmt.Sprintf(
		"Two-factor authentication on your account was %s.\n\n"+
			"If you did not make this change, contact support immediately.\n",
		event,
	)

	return n.send(ctx, email, subject, body)
}

func (n *AWSSESNotifier) send(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := n.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send security notification: %w", err)
	}

	n.logger.Info("security notification sent", slog.String("subject", subject))
	return nil
}

// NoopNotifier discards notifications. Used when email delivery is disabled.
type NoopNotifier struct{}

func (NoopNotifier) NotifyLockout(ctx context.Context, email, ipAddress string, blockedUntil time.Time) error {
	return nil
}

func (NoopNotifier) NotifyMFAChanged(ctx context.Context, email, event string) error {
	return nil
}
