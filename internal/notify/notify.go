// Package notify delivers password reset links to users
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"path"
	"time"

	"bitwise74/auth-api/config"
)

// Notifier sends a reset link to an email address. A single attempt is made,
// failures come back as *DeliveryError.
type Notifier interface {
	SendResetLink(ctx context.Context, m *ResetMail) error
}

type ResetMail struct {
	To       string
	Link     string
	ValidFor time.Duration
}

// ErrorKind is the transport independent reason a delivery failed
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthFailed
	KindConnectionFailed
	KindTimedOut
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthFailed:
		return "auth_failed"
	case KindConnectionFailed:
		return "connection_failed"
	case KindTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

type DeliveryError struct {
	Kind      ErrorKind
	Transport string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed (%s), %v", e.Transport, e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a *DeliveryError anywhere in err's chain
func KindOf(err error) ErrorKind {
	var d *DeliveryError
	if errors.As(err, &d) {
		return d.Kind
	}

	return KindUnknown
}

// New builds the notifier selected by cfg.Transport
func New(cfg *config.Mail) (Notifier, error) {
	switch cfg.Transport {
	case "smtp":
		return NewSMTPNotifier(cfg), nil
	case "ses":
		return NewSESNotifier(cfg)
	case "log":
		return NewLogNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// ResetLink points at the frontend reset page with token as a query parameter
func ResetLink(frontendURL, token string) (string, error) {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return "", fmt.Errorf("invalid frontend URL, %w", err)
	}

	u.Path = path.Join("/", u.Path, "reset-password")

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

const resetSubject = "Password Reset Request"

var resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Password Reset Request</h2>
  <p>You have requested to reset your password. Click the link below to proceed:</p>
  <p><a href="{{.Link}}">Reset Password</a></p>
  <p>Or copy and paste this link in your browser:<br><code>{{.Link}}</code></p>
  <p><strong>This link will expire in {{.ValidFor}}.</strong></p>
  <p>If you did not request a password reset, please ignore this email.</p>
</div>`))

// render returns the subject, HTML body and plain text body of m
func render(m *ResetMail) (subject, html, text string, err error) {
	validFor := humanDuration(m.ValidFor)

	var buf bytes.Buffer
	err = resetTemplate.Execute(&buf, struct {
		Link     string
		ValidFor string
	}{m.Link, validFor})
	if err != nil {
		return "", "", "", fmt.Errorf("failed to render reset mail, %w", err)
	}

	text = fmt.Sprintf("You have requested to reset your password. Open this link to proceed:\n\n%s\n\nThis link will expire in %s.\nIf you did not request a password reset, please ignore this email.",
		m.Link, validFor)

	return resetSubject, buf.String(), text, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	case d >= time.Second && d%time.Second == 0:
		return plural(int(d/time.Second), "second")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}

	return fmt.Sprintf("%d %ss", n, unit)
}
