package mailer

// Service is a raw email backend. Send returns the provider message ID when
// one exists.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
}
