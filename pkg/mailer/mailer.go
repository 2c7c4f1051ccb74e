package mailer

import (
	"BPIApi/pkg/logger"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends transactional email over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	sender string
}

// New returns a Mailer. An empty host yields a mailer that only logs.
func New(host string, port int, user, password, sender string) *Mailer {
	m := &Mailer{sender: sender}
	if host != "" {
		m.dialer = gomail.NewDialer(host, port, user, password)
	}
	return m
}

// Send delivers a plain text message to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if m.dialer == nil {
		logger.Warn("SMTP not configured, dropping email to %s: %s", to, subject)
		return nil
	}

	msg := BuildMessage(m.sender, to, subject, body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return logger.WrapError(err, fmt.Sprintf("send email to %s", to))
	}

	logger.Info("Email successfully sent to %s", to)
	return nil
}

// BuildMessage assembles the gomail message Send would deliver.
func BuildMessage(from, to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}

// ClaimCodeBody renders the email sent when a pickup claim code is issued.
func ClaimCodeBody(name, code, center string, orderID int64) string {
	return fmt.Sprintf("Hello %s,\n\n"+
		"Your order #%d is ready for pickup at %s.\n"+
		"Present this claim code to the pickup staff: %s\n\n"+
		"BPI", name, orderID, center, code)
}
