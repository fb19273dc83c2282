package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"bitwise74/recipe-api/config"

	"gopkg.in/gomail.v2"
)

var (
	ErrQueueFull   = errors.New("mail queue full")
	ErrQueueClosed = errors.New("mail queue closed")
)

// VerificationMail is everything needed to deliver one verification email
type VerificationMail struct {
	To       string `json:"to"`
	Username string `json:"username"`
	URL      string `json:"url"`
}

// MailQueue hands a mail off to be delivered later. Enqueue returns once
// the mail is accepted, never after delivery.
type MailQueue interface {
	Enqueue(ctx context.Context, m VerificationMail) error
}

// MailSender delivers a mail right away
type MailSender interface {
	Send(ctx context.Context, m VerificationMail) error
}

var verificationTmpl = template.Must(template.New("verification").Parse(`<p>Hi {{.Username}},</p>
<p>Click <a href="{{.URL}}">here</a> to verify your email and start sharing recipes.</p>
<p>If you didn't create an account you can ignore this email.</p>`))

// RenderVerificationMail returns the HTML body of a verification mail
func RenderVerificationMail(m VerificationMail) (string, error) {
	var buf bytes.Buffer
	if err := verificationTmpl.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("failed to render verification mail, %w", err)
	}

	return buf.String(), nil
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(c config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(c.Host, c.Port, c.Sender, c.Password),
		from:   c.Sender,
	}
}

func (s *SMTPSender) Send(_ context.Context, vm VerificationMail) error {
	if vm.To == s.from {
		return errors.New("invalid email address")
	}

	body, err := RenderVerificationMail(vm)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", vm.To)
	m.SetHeader("Subject", "Verify your email")
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail, %w", err)
	}

	return nil
}
