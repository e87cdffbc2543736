// Package email delivers verification codes to new users.
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/zfogg/plaza/internal/logger"
	"go.uber.org/zap"
)

// Sender delivers a signup code to an address
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
}

// SESAPI is the subset of the SES client used here
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends mail through AWS SES
type SESSender struct {
	client    SESAPI
	fromEmail string
	fromName  string
}

// NewSESSender loads the default AWS config for region
func NewSESSender(region, fromEmail, fromName string) (*SESSender, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESSenderWithClient(ses.NewFromConfig(cfg), fromEmail, fromName), nil
}

func NewSESSenderWithClient(client SESAPI, fromEmail, fromName string) *SESSender {
	return &SESSender{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (e *SESSender) from() string {
	if e.fromName == "" {
		return e.fromEmail
	}
	return fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
}

// SendOTP mails the verification code
func (e *SESSender) SendOTP(ctx context.Context, to, code string) error {
	subject, htmlBody, textBody := otpMessage(code)

	input := &ses.SendEmailInput{
		Source:      aws.String(e.from()),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
			},
		},
	}

	if _, err := e.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func otpMessage(code string) (subject, html, text string) {
	subject = "Your Plaza verification code"
	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1>Verify your email</h1>
		<p>Use this code to finish creating your Plaza account. It expires in 5 minutes.</p>
		<p style="font-size: 32px; letter-spacing: 8px; font-weight: bold;">%s</p>
		<p>If you didn't request this, you can ignore this email.</p>
	</div>
</body>
</html>`, code)
	text = fmt.Sprintf("Your Plaza verification code is %s\n\nIt expires in 5 minutes. If you didn't request this, you can ignore this email.\n", code)
	return subject, html, text
}

// LogSender writes codes to the log instead of mailing them. Used in
// development when no SES sender is configured.
type LogSender struct{}

func (LogSender) SendOTP(ctx context.Context, to, code string) error {
	logger.Log.Info("Verification code issued", zap.String("email", to), zap.String("code", code))
	return nil
}
