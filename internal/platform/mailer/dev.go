package mailer

import (
	"github.com/slotwise/schedulr/pkg/logger"
)

// DevMailer prints emails to the log instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("📧 [DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"body", text,
	)
	return "dev-mail", nil
}

var _ Service = (*DevMailer)(nil)
