package services

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends transactional email via SendGrid.
type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

var emailService *EmailService

// InitEmailService configures the shared SendGrid sender. An empty API key
// leaves the service nil; sends then fail with an error the caller logs,
// which keeps local development working without credentials.
func InitEmailService(apiKey, fromEmail, fromName string) {
	if apiKey == "" {
		return
	}
	emailService = &EmailService{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// SendOTPEmail delivers the password-reset code to the user.
func SendOTPEmail(ctx context.Context, toEmail, code string) error {
	if emailService == nil {
		return fmt.Errorf("email service not configured")
	}

	from := mail.NewEmail(emailService.fromName, emailService.fromEmail)
	to := mail.NewEmail("", toEmail)
	subject := "Your SPARKS password reset code"
	plain := fmt.Sprintf("Your password reset code is %s. It expires in 10 minutes.\n\nIf you did not request this, you can ignore this email.", code)
	html := fmt.Sprintf("<p>Your password reset code is <strong>%s</strong>. It expires in 10 minutes.</p><p>If you did not request this, you can ignore this email.</p>", code)

	message := mail.NewSingleEmail(from, subject, to, plain, html)
	resp, err := emailService.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
