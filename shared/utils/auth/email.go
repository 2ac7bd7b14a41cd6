package utils

import (
	"bytes"
	"fmt"
	"html/template"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"promptmaker-backend/shared/config"
	"promptmaker-backend/shared/logger"
)

// ResetMailer delivers password reset links
type ResetMailer interface {
	SendPasswordResetEmail(toEmail, userName, resetToken string) error
}

type EmailService struct {
	config *config.Config
	dialer *gomail.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		config: cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.GetSMTPPort(), cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

type EmailData struct {
	To      string
	Subject string
	Body    string
	IsHTML  bool
}

// SendEmail sends one message. With SMTP disabled the message is only logged.
func (e *EmailService) SendEmail(emailData EmailData) error {
	if !e.config.SMTPEnabled {
		logger.Log.Info("smtp disabled, email not sent",
			zap.String("to", emailData.To),
			zap.String("subject", emailData.Subject),
		)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", e.config.EmailFrom, e.config.EmailFromName)
	msg.SetHeader("To", emailData.To)
	msg.SetHeader("Subject", emailData.Subject)

	if emailData.IsHTML {
		msg.SetBody("text/html", emailData.Body)
	} else {
		msg.SetBody("text/plain", emailData.Body)
	}

	if err := e.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", emailData.To, err)
	}
	return nil
}

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Reset your password - Prompt Maker</title>
</head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="color: #343a40;">Reset your password</h1>
    <p>Hello {{.UserName}},</p>
    <p>Someone asked to reset the password for your Prompt Maker account. If it was you, use the link below. It expires in {{.ExpiresIn}}.</p>
    <p><a href="{{.ResetURL}}" style="background-color: #4f46e5; color: #fff; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Reset password</a></p>
    <p style="color: #6c757d; font-size: 13px;">If you did not request this, you can ignore this email.</p>
</body>
</html>`))

// ResetURL builds the frontend link carrying the token
func (e *EmailService) ResetURL(resetToken string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", e.config.FrontendURL, resetToken)
}

func (e *EmailService) SendPasswordResetEmail(toEmail, userName, resetToken string) error {
	var body bytes.Buffer
	err := resetTemplate.Execute(&body, map[string]string{
		"UserName":  userName,
		"ResetURL":  e.ResetURL(resetToken),
		"ExpiresIn": fmt.Sprintf("%d minutes", e.config.GetResetTokenTTLMinutes()),
	})
	if err != nil {
		return fmt.Errorf("failed to render reset email: %w", err)
	}

	return e.SendEmail(EmailData{
		To:      toEmail,
		Subject: "Reset your Prompt Maker password",
		Body:    body.String(),
		IsHTML:  true,
	})
}
