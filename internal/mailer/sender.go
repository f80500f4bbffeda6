package mailer

import (
	"log/slog"

	"gopkg.in/gomail.v2"
)

// SMTPSender sends HTML mail through a plain SMTP relay.
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	fromName string
	log      *slog.Logger
}

func NewSMTPSender(host string, port int, user, password, from, fromName string, log *slog.Logger) *SMTPSender {
	if log == nil {
		log = slog.Default()
	}
	return &SMTPSender{host: host, port: port, user: user, password: password, from: from, fromName: fromName, log: log}
}

var _ Sender = (*SMTPSender)(nil)

// Send delivers one message. Without a configured host it logs the mail and
// reports success, which keeps development environments working end to end.
func (s *SMTPSender) Send(to, subject, html string) bool {
	if s.host == "" {
		s.log.Info("SMTP not configured, skipping delivery", "to", to, "subject", subject)
		return true
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	d := gomail.NewDialer(s.host, s.port, s.user, s.password)
	if err := d.DialAndSend(m); err != nil {
		s.log.Error("smtp send failed", "to", to, "error", err)
		return false
	}
	return true
}
