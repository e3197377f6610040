package mail

import (
	"fmt"
	"net/smtp"

	"github.com/gofiber/fiber/v2/log"

	"github.com/evergift/evergift/internal/pkg/env"
)

// SendMail sends an email via SMTP using the environment configuration.
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = "no-reply@localhost"
		log.Warnf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Errorf("SMTP send to %s failed: %v", to, err)
	}
	return err
}

// SendVerificationMail delivers the email verification link. The raw
// token only ever travels over mail and the register response, never the
// database.
func SendVerificationMail(to string, rawToken string) error {
	base := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:4000")
	link := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", base, rawToken)

	body := fmt.Sprintf(
		"<p>Welcome to Evergift!</p><p>Please confirm your email address within 24 hours:</p><p><a href=\"%s\">%s</a></p>",
		link, link,
	)
	return SendMail(to, "Confirm your Evergift account", body)
}
