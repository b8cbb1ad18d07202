// Package email implementa el welcome mail post-provisioning (no fatal).
package email

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/rotterdam-cs/portal-connect/internal/observability/logger"
)

// SMTPSender envía el mail de bienvenida por SMTP.
// Implementa connect.WelcomeMailer.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
}

func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
	}
}

// SendWelcome envía el aviso de cuenta creada. El caller trata cualquier
// error como no fatal.
func (s *SMTPSender) SendWelcome(ctx context.Context, to, firstName string) error {
	log := logger.From(ctx).With(
		logger.Component("email.welcome"),
		logger.String("host", s.Host),
	)

	greeting := "Hi"
	if firstName != "" {
		greeting = "Hi " + firstName
	}
	text := fmt.Sprintf("%s,\n\nYour portal account was created from your Google sign-in.\n"+
		"You will be asked to set a password on your first portal login.\n", greeting)
	html := fmt.Sprintf("<p>%s,</p><p>Your portal account was created from your Google sign-in.<br>"+
		"You will be asked to set a password on your first portal login.</p>", greeting)

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Welcome to the portal")
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", html)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Warn("welcome mail send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
