package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitwise74/auth-api/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type SMTPNotifier struct {
	from     string
	timeout  time.Duration
	host     string
	port     int
	username string
	password string
	ssl      bool
}

func NewSMTPNotifier(cfg *config.Mail) *SMTPNotifier {
	return &SMTPNotifier{
		from:     cfg.From,
		timeout:  cfg.Timeout,
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		username: cfg.SMTP.User,
		password: cfg.SMTP.Password,
		// Same implicit TLS rule as gomail.NewDialer
		ssl: cfg.SMTP.Port == 465,
	}
}

func (n *SMTPNotifier) SendResetLink(ctx context.Context, m *ResetMail) error {
	subject, html, text, err := render(m)
	if err != nil {
		return &DeliveryError{Kind: KindUnknown, Transport: "smtp", Err: err}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", html)

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.send(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}

		return &DeliveryError{Kind: classifySMTP(err), Transport: "smtp", Err: err}
	}

	zap.L().Debug("Reset email sent", zap.String("transport", "smtp"))
	return nil
}

// send runs the whole SMTP exchange on a connection bound to ctx. Once ctx
// ends every pending read or write fails and the connection is closed
// before send returns.
func (n *SMTPNotifier) send(ctx context.Context, msg *gomail.Message) error {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", net.JoinHostPort(n.host, strconv.Itoa(n.port)))
	if err != nil {
		return err
	}
	defer raw.Close()

	if deadline, ok := ctx.Deadline(); ok {
		raw.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { raw.SetDeadline(time.Now()) })
	defer stop()

	conn := raw
	if n.ssl {
		conn = tls.Client(raw, &tls.Config{ServerName: n.host})
	}

	c, err := smtp.NewClient(conn, n.host)
	if err != nil {
		return err
	}
	defer c.Close()

	if !n.ssl {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: n.host}); err != nil {
				return err
			}
		}
	}

	if n.username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", n.username, n.password, n.host)); err != nil {
				return err
			}
		}
	}

	sender := gomail.SendFunc(func(from string, to []string, m io.WriterTo) error {
		if err := c.Mail(from); err != nil {
			return err
		}
		for _, addr := range to {
			if err := c.Rcpt(addr); err != nil {
				return err
			}
		}

		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := m.WriteTo(w); err != nil {
			w.Close()
			return err
		}

		return w.Close()
	})

	if err := gomail.Send(sender, msg); err != nil {
		return err
	}

	return c.Quit()
}

func classifySMTP(err error) ErrorKind {
	// The caller went away, the server did nothing wrong
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimedOut
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimedOut
	}

	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535, 538:
			return KindAuthFailed
		}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnectionFailed
	}

	// gomail flattens send errors into strings
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return KindTimedOut
	case strings.Contains(msg, "authentication") || strings.Contains(msg, "535 "):
		return KindAuthFailed
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset"):
		return KindConnectionFailed
	}

	return KindUnknown
}
