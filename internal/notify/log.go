package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes reset links to the log instead of mailing them.
// Only meant for local development.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	zap.L().Warn("Mail transport is set to log, reset links will be written to the log and never mailed")
	return &LogNotifier{}
}

func (LogNotifier) SendResetLink(_ context.Context, m *ResetMail) error {
	zap.L().Info("Password reset link",
		zap.String("to", m.To),
		zap.String("link", m.Link),
		zap.Duration("valid_for", m.ValidFor),
	)

	return nil
}
