package mail

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	htmltemplate "html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Recipient struct {
	Email     string
	FirstName string
}

type Sender interface {
	SendWelcome(ctx context.Context, to Recipient, url string) error
	SendPasswordReset(ctx context.Context, to Recipient, url string) error
}

// Message is a rendered mail with text and HTML bodies.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

const (
	welcomeSubject = "Thanks for signing up!"
	resetSubject   = "Reset your password (Valid for 10 mins)"
)

type templateData struct {
	FirstName string
	Subject   string
	URL       string
}

func render(name, subject string, to Recipient, url string) (Message, error) {
	data := templateData{FirstName: to.FirstName, Subject: subject, URL: url}

	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	return Message{To: to.Email, Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

func RenderWelcome(to Recipient, url string) (Message, error) {
	return render("welcome", welcomeSubject, to, url)
}

func RenderPasswordReset(to Recipient, url string) (Message, error) {
	return render("passwordReset", resetSubject, to, url)
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	Cfg SMTPConfig
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, to Recipient, url string) error {
	msg, err := RenderWelcome(to, url)
	if err != nil {
		return err
	}
	return m.Send(ctx, msg)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to Recipient, url string) error {
	msg, err := RenderPasswordReset(to, url)
	if err != nil {
		return err
	}
	return m.Send(ctx, msg)
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(m.Cfg.Host, strconv.Itoa(m.Cfg.Port))
	var auth smtp.Auth
	if m.Cfg.Username != "" {
		auth = smtp.PlainAuth("", m.Cfg.Username, m.Cfg.Password, m.Cfg.Host)
	}

	body, err := build(m.Cfg.From, msg)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.Cfg.From, []string{msg.To}, body)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func build(from string, msg Message) ([]byte, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	boundary := "storefront-" + hex.EncodeToString(b)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	for _, part := range []struct{ ctype, body string }{
		{"text/plain", msg.Text},
		{"text/html", msg.HTML},
	} {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s; charset=UTF-8\r\n\r\n", part.ctype)
		buf.WriteString(strings.ReplaceAll(part.body, "\n", "\r\n"))
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

// LogMailer writes the rendered mail to the request logger instead of
// sending it. Used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) SendWelcome(ctx context.Context, to Recipient, url string) error {
	logging.FromContext(ctx).Info("mail_welcome", "to", to.Email, "url", url)
	return nil
}

func (LogMailer) SendPasswordReset(ctx context.Context, to Recipient, url string) error {
	logging.FromContext(ctx).Info("mail_password_reset", "to", to.Email, "url", url)
	return nil
}

var htmlTemplates = htmltemplate.Must(htmltemplate.New("mail").Parse(`
{{define "welcome"}}<!DOCTYPE html>
<html><head><title>{{.Subject}}</title></head>
<body>
<p>Hi {{.FirstName}},</p>
<p>Welcome to Storefront, we're glad to have you 🎉🙏</p>
<p>Please confirm your email address to activate your account. The link is valid for 20 minutes.</p>
<p><a href="{{.URL}}">Activate my account</a></p>
<p>If you did not sign up, please ignore this email.</p>
</body></html>{{end}}
{{define "passwordReset"}}<!DOCTYPE html>
<html><head><title>{{.Subject}}</title></head>
<body>
<p>Hi {{.FirstName}},</p>
<p>Forgot your password? Submit a request with your new password and password confirmation to the link below.</p>
<p><a href="{{.URL}}">Reset your password</a></p>
<p>If you didn't forget your password, please ignore this email.</p>
</body></html>{{end}}
`))

var textTemplates = texttemplate.Must(texttemplate.New("mail").Parse(`
{{define "welcome"}}Hi {{.FirstName}},

Welcome to Storefront, we're glad to have you.
Please confirm your email address to activate your account (valid for 20 minutes):
{{.URL}}

If you did not sign up, please ignore this email.
{{end}}
{{define "passwordReset"}}Hi {{.FirstName}},

Forgot your password? Submit a request with your new password and password confirmation to:
{{.URL}}

If you didn't forget your password, please ignore this email.
{{end}}
`))
