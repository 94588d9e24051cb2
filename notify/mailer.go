// Package notify delivers account lifecycle emails. Mailer sends over SMTP;
// LogNotifier prints the links for local development.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"text/template"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

var verificationTemplate = template.Must(template.New("verification").Parse(`Hello,

Thanks for signing up. Confirm your email address by opening the link below:

{{.Link}}

The link expires at {{.ExpiresAt}} (24 hours after it was issued). If you did
not create this account you can ignore this message.
`))

var passwordResetTemplate = template.Must(template.New("reset").Parse(`Hello,

A password reset was requested for your account. Open the link below to
choose a new password:

{{.Link}}

The link expires at {{.ExpiresAt}} (1 hour after it was issued). If you did
not request a reset you can ignore this message; your password is unchanged.
`))

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer satisfies the account notifier over SMTP.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

func NewMailer(cfg SMTPConfig, baseURL string) *Mailer {
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		baseURL: baseURL,
	}
}

func (m *Mailer) SendVerification(ctx context.Context, email, token string, expiresAt time.Time) error {
	body, err := renderBody(verificationTemplate, m.link("/auth/verify-email", token), expiresAt)
	if err != nil {
		return err
	}
	return m.send(ctx, email, "Verify your email address", body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	body, err := renderBody(passwordResetTemplate, m.link("/reset-password", token), expiresAt)
	if err != nil {
		return err
	}
	return m.send(ctx, email, "Reset your password", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send email").
			WithMetadata(map[string]any{
				"subject": subject,
			})
	}

	return nil
}

func (m *Mailer) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", m.baseURL, path, url.QueryEscape(token))
}

func renderBody(tpl *template.Template, link string, expiresAt time.Time) (string, error) {
	var buf bytes.Buffer
	err := tpl.Execute(&buf, map[string]string{
		"Link":      link,
		"ExpiresAt": expiresAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email body")
	}
	return buf.String(), nil
}

// LogNotifier prints the links that would have been emailed. Development
// only.
type LogNotifier struct {
	BaseURL string
}

func (l LogNotifier) SendVerification(ctx context.Context, email, token string, expiresAt time.Time) error {
	l.print(email, fmt.Sprintf("%s/auth/verify-email?token=%s", l.BaseURL, url.QueryEscape(token)), expiresAt)
	return nil
}

func (l LogNotifier) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	l.print(email, fmt.Sprintf("%s/reset-password?token=%s", l.BaseURL, url.QueryEscape(token)), expiresAt)
	return nil
}

func (l LogNotifier) print(email, link string, expiresAt time.Time) {
	fmt.Println("====== SENDING EMAIL NOTIFICATION =======")
	fmt.Printf("to: %s\n", email)
	fmt.Printf("link: %s\n", link)
	fmt.Printf("expires: %s\n", expiresAt.UTC().Format(time.RFC1123))
}
