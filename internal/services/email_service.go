package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type emailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.dialer.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// AccessLinkEmail: письмо заявителю со ссылкой на анкету.
func AccessLinkEmail(firstName, link string, expiresAt time.Time) (subject, body string) {
	subject = "Votre dossier d'inscription"
	body = fmt.Sprintf(`
		<h2>Bonjour %s,</h2>
		<p>Vous pouvez compléter et vérifier votre dossier d'inscription en suivant ce lien :</p>
		<p><a href="%s">%s</a></p>
		<p>Un code de vérification vous sera envoyé par SMS pour confirmer votre identité.</p>
		<p>Ce lien expire le %s (UTC).</p>
	`, html.EscapeString(firstName), html.EscapeString(link), html.EscapeString(link), expiresAt.UTC().Format("02/01/2006 15:04"))
	return subject, body
}
