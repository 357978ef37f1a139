package notify

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"bitwise74/auth-api/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetLink(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:5173", "http://localhost:5173/reset-password?token=abc123"},
		{"https://app.example.com/", "https://app.example.com/reset-password?token=abc123"},
		{"https://example.com/app", "https://example.com/app/reset-password?token=abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			link, err := ResetLink(tt.base, "abc123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, link)
		})
	}
}

func TestRender_MentionsLinkAndExpiry(t *testing.T) {
	subject, html, text, err := render(&ResetMail{
		To:       "jane@x.com",
		Link:     "http://localhost:5173/reset-password?token=abc123",
		ValidFor: 15 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, "Password Reset Request", subject)
	assert.Contains(t, html, "reset-password?token=abc123")
	assert.Contains(t, html, "15 minutes")
	assert.Contains(t, text, "http://localhost:5173/reset-password?token=abc123")
	assert.Contains(t, text, "15 minutes")
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "15 minutes", humanDuration(15*time.Minute))
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "90 seconds", humanDuration(90*time.Second))
	assert.Equal(t, "1 second", humanDuration(time.Second))
	assert.Equal(t, "1.5s", humanDuration(1500*time.Millisecond))
}

func TestDeliveryError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped, %w", &DeliveryError{Kind: KindTimedOut, Transport: "smtp", Err: cause})

	assert.Equal(t, KindTimedOut, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "timed_out")

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestClassifySMTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"deadline", context.DeadlineExceeded, KindTimedOut},
		{"caller cancelled", context.Canceled, KindUnknown},
		{"cancelled mid read", errors.Join(context.Canceled, &net.OpError{Op: "read", Net: "tcp", Err: errors.New("i/o timeout")}), KindUnknown},
		{"auth rejected", &textproto.Error{Code: 535, Msg: "5.7.8 Username and Password not accepted"}, KindAuthFailed},
		{"other smtp reply", &textproto.Error{Code: 550, Msg: "mailbox unavailable"}, KindUnknown},
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")}, KindConnectionFailed},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "smtp.invalid"}, KindConnectionFailed},
		{"flattened auth", errors.New("gomail: could not send email 1: 535 authentication failed"), KindAuthFailed},
		{"flattened timeout", errors.New("gomail: could not send email 1: i/o timeout"), KindTimedOut},
		{"anything else", errors.New("something odd"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifySMTP(tt.err))
		})
	}
}

func TestSMTPNotifier_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	n := NewSMTPNotifier(&config.Mail{
		From:    "noreply@example.com",
		Timeout: 5 * time.Second,
		SMTP:    config.SMTP{Host: "127.0.0.1", Port: port},
	})

	err = n.SendResetLink(context.Background(), &ResetMail{To: "jane@x.com", Link: "http://x/reset-password?token=t", ValidFor: time.Minute})
	require.Error(t, err)
	assert.Equal(t, KindConnectionFailed, KindOf(err))
}

func TestSMTPNotifier_TimesOut(t *testing.T) {
	// A server that accepts connections and never greets
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		l.Close()
		mu.Lock()
		for _, c := range conns {
			c.Close()
		}
		mu.Unlock()
	})

	n := NewSMTPNotifier(&config.Mail{
		From:    "noreply@example.com",
		Timeout: 100 * time.Millisecond,
		SMTP:    config.SMTP{Host: "127.0.0.1", Port: l.Addr().(*net.TCPAddr).Port},
	})

	start := time.Now()
	err = n.SendResetLink(context.Background(), &ResetMail{To: "jane@x.com", Link: "http://x/reset-password?token=t", ValidFor: time.Minute})
	require.Error(t, err)
	assert.Equal(t, KindTimedOut, KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPNotifier_CancelledIsNotATimeout(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	n := NewSMTPNotifier(&config.Mail{
		From:    "noreply@example.com",
		Timeout: 5 * time.Second,
		SMTP:    config.SMTP{Host: "127.0.0.1", Port: l.Addr().(*net.TCPAddr).Port},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = n.SendResetLink(ctx, &ResetMail{To: "jane@x.com", Link: "http://x/reset-password?token=t", ValidFor: time.Minute})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindUnknown, KindOf(err))
}

func TestSMTPNotifier_HangsUpOnStalledServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	// Greets and answers EHLO, then never replies to MAIL FROM
	hungUp := make(chan struct{})
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()

		r := bufio.NewReader(c)
		fmt.Fprint(c, "220 localhost ESMTP\r\n")
		if _, err := r.ReadString('\n'); err != nil {
			return
		}
		fmt.Fprint(c, "250 localhost\r\n")

		for {
			if _, err := r.ReadString('\n'); err != nil {
				close(hungUp)
				return
			}
		}
	}()

	n := NewSMTPNotifier(&config.Mail{
		From:    "noreply@example.com",
		Timeout: 100 * time.Millisecond,
		SMTP:    config.SMTP{Host: "127.0.0.1", Port: l.Addr().(*net.TCPAddr).Port},
	})

	err = n.SendResetLink(context.Background(), &ResetMail{To: "jane@x.com", Link: "http://x/reset-password?token=t", ValidFor: time.Minute})
	require.Error(t, err)
	assert.Equal(t, KindTimedOut, KindOf(err))

	// The connection is gone by the time the send reports failure
	select {
	case <-hungUp:
	case <-time.After(2 * time.Second):
		t.Fatal("connection to the stalled server was left open")
	}
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmailWithContext(_ aws.Context, input *ses.SendEmailInput, _ ...request.Option) (*ses.SendEmailOutput, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}

	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESNotifier_Send(t *testing.T) {
	fake := &fakeSES{}
	n := &SESNotifier{from: "noreply@example.com", timeout: time.Second, client: fake}

	err := n.SendResetLink(context.Background(), &ResetMail{
		To:       "jane@x.com",
		Link:     "http://localhost:5173/reset-password?token=abc123",
		ValidFor: 15 * time.Minute,
	})
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	assert.Equal(t, "noreply@example.com", aws.StringValue(fake.input.Source))
	assert.Equal(t, []string{"jane@x.com"}, aws.StringValueSlice(fake.input.Destination.ToAddresses))
	assert.Equal(t, "Password Reset Request", aws.StringValue(fake.input.Message.Subject.Data))
	assert.True(t, strings.Contains(aws.StringValue(fake.input.Message.Body.Html.Data), "token=abc123"))
}

func TestSESNotifier_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		code string
		want ErrorKind
	}{
		{"SignatureDoesNotMatch", KindAuthFailed},
		{"InvalidClientTokenId", KindAuthFailed},
		{request.ErrCodeRequestError, KindConnectionFailed},
		{request.CanceledErrorCode, KindTimedOut},
		{ses.ErrCodeMessageRejected, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fake := &fakeSES{err: awserr.New(tt.code, "failed", nil)}
			n := &SESNotifier{from: "noreply@example.com", timeout: time.Second, client: fake}

			err := n.SendResetLink(context.Background(), &ResetMail{To: "jane@x.com", Link: "http://x", ValidFor: time.Minute})
			require.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestNew(t *testing.T) {
	n, err := New(&config.Mail{Transport: "log"})
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	n, err = New(&config.Mail{Transport: "smtp", SMTP: config.SMTP{Host: "localhost", Port: 25}})
	require.NoError(t, err)
	assert.IsType(t, &SMTPNotifier{}, n)

	_, err = New(&config.Mail{Transport: "fax"})
	assert.Error(t, err)
}
