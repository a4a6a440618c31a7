// Package mailer sends documents and backups over SMTP using the
// credentials stored in the email settings singleton.
package mailer

import (
	"bytes"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"

	"github.com/somagec/quarrystock/internal/models"
	"github.com/somagec/quarrystock/internal/services"
)

// Attachment is an in-memory file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Mailer wraps the SMTP host/port from config; sender credentials come
// from the EmailSettings row per call, not from process state.
type Mailer struct {
	host string
	port int
}

func New(host string, port int) *Mailer {
	return &Mailer{host: host, port: port}
}

// Send delivers one message. Missing credentials or recipient become a
// ConfigurationError; transport failures come back as DeliveryError.
func (m *Mailer) Send(settings *models.EmailSettings, to, subject, body string, attachments ...Attachment) error {
	if settings == nil || settings.SenderEmail == "" || settings.SenderPassword == "" {
		return &services.ConfigurationError{Reason: "sender email credentials are not configured"}
	}
	if to == "" {
		return &services.ConfigurationError{Reason: "recipient email is missing"}
	}
	e := email.NewEmail()
	e.From = settings.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)
	for _, a := range attachments {
		if _, err := e.Attach(bytes.NewReader(a.Data), a.Filename, a.ContentType); err != nil {
			return fmt.Errorf("mailer: attach %s: %w", a.Filename, err)
		}
	}
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", settings.SenderEmail, settings.SenderPassword, m.host)
	if err := e.Send(addr, auth); err != nil {
		return &services.DeliveryError{Err: err}
	}
	log.Info().Str("to", to).Str("subject", subject).Msg("email sent")
	return nil
}
