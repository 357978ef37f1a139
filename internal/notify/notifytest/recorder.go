// Package notifytest provides a Notifier that records mails instead of sending them
package notifytest

import (
	"context"
	"net/url"
	"sync"

	"bitwise74/auth-api/internal/notify"
)

type Recorder struct {
	mu   sync.Mutex
	sent []notify.ResetMail
	// Err, when set, is returned by every send. The mail is not recorded
	Err error
}

func (r *Recorder) SendResetLink(_ context.Context, m *notify.ResetMail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}

	r.sent = append(r.sent, *m)
	return nil
}

func (r *Recorder) Sent() []notify.ResetMail {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]notify.ResetMail(nil), r.sent...)
}

// LastToken extracts the token query parameter of the most recent link
func (r *Recorder) LastToken() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sent) == 0 {
		return ""
	}

	u, err := url.Parse(r.sent[len(r.sent)-1].Link)
	if err != nil {
		return ""
	}

	return u.Query().Get("token")
}
