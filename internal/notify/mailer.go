// Package notify implements the expiry notification sweep and its outbound
// email transport.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Notification is one expiry warning to deliver.
type Notification struct {
	CertificateName string
	ExpiryDate      time.Time
	DaysRemaining   int
	RecipientEmail  string
}

// Mailer delivers expiry notifications. A send error leaves the
// certificate's notification flag unset, so the next sweep retries it.
type Mailer interface {
	SendExpiryNotification(ctx context.Context, n Notification) error
}

// SESConfig holds the AWS SES settings for the mailer.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

// SESMailer sends notifications through AWS SES v2.
type SESMailer struct {
	client *sesv2.Client
	from   string
}

// NewSESMailer builds an SES client from static credentials, or from the
// default credential chain when no access key is configured.
func NewSESMailer(ctx context.Context, cfg SESConfig) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SESMailer{client: sesv2.NewFromConfig(awsCfg), from: cfg.From}, nil
}

// SendExpiryNotification delivers one warning email with HTML and plain-text
// bodies.
func (m *SESMailer) SendExpiryNotification(ctx context.Context, n Notification) error {
	subject := fmt.Sprintf("⚠️ Certifikát čoskoro expiruje - %s", n.CertificateName)
	html, text := renderBodies(n)

	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{n.RecipientEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html)},
					Text: &types.Content{Data: aws.String(text)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send notification to %s: %w", n.RecipientEmail, err)
	}
	return nil
}

func renderBodies(n Notification) (html, text string) {
	date := n.ExpiryDate.Format("02.01.2006")
	days := fmt.Sprintf("%d %s", n.DaysRemaining, dayWord(n.DaysRemaining))

	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h2 style="background-color: #f97316; color: white; padding: 20px; margin: 0;">⚠️ Upozornenie na expiráciu certifikátu</h2>
      <div style="background-color: #f9fafb; padding: 20px; border: 1px solid #e5e7eb;">
        <p>Dobrý deň,</p>
        <p>upozorňujeme Vás, že certifikát <strong>"%s"</strong> čoskoro expiruje.</p>
        <div style="background-color: white; padding: 15px; border-left: 4px solid #f97316;">
          <p><strong>Názov certifikátu:</strong> %s</p>
          <p><strong>Dátum expirácie:</strong> %s</p>
          <p style="color: #dc2626;"><strong>Zostáva:</strong> %s</p>
        </div>
        <p><strong>Prosím, obnovte certifikát čo najskôr.</strong></p>
        <p>S pozdravom,<br><strong>Certificate Registry System</strong></p>
      </div>
      <p style="font-size: 12px; color: #6b7280;">Toto je automaticky generovaná správa. Neodpovedajte na tento email.</p>
    </div>
  </body>
</html>`, n.CertificateName, n.CertificateName, date, days)

	text = fmt.Sprintf(`Dobrý deň,

upozorňujeme Vás, že certifikát "%s" čoskoro expiruje.

Dátum expirácie: %s
Zostáva: %s

Prosím, obnovte certifikát čo najskôr.

S pozdravom,
Certificate Registry System
`, n.CertificateName, date, days)

	return html, text
}

// dayWord picks the Slovak plural form for a day count.
func dayWord(n int) string {
	switch {
	case n == 1:
		return "deň"
	case n < 5:
		return "dni"
	default:
		return "dní"
	}
}

// LogMailer logs notifications instead of sending them. Used when SES is
// not configured, typically in local development.
type LogMailer struct{}

// SendExpiryNotification logs the would-be delivery and reports success.
func (LogMailer) SendExpiryNotification(_ context.Context, n Notification) error {
	slog.Info("expiry notification (email disabled)",
		"certificate", n.CertificateName,
		"recipient", n.RecipientEmail,
		"days_remaining", n.DaysRemaining,
	)
	return nil
}
