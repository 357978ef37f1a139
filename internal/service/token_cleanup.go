package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredTokenClearer is the part of the account store the cleanup job uses
type ExpiredTokenClearer interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// TokenCleanup periodically clears reset tokens that have expired so they
// don't linger in the store. It blocks until ctx is cancelled.
func TokenCleanup(ctx context.Context, t time.Duration, s ExpiredTokenClearer) {
	ticker := time.NewTicker(t)
	defer ticker.Stop()

	zap.L().Debug("Token cleanup attached", zap.Duration("tick_every", t))

	for {
		select {
		case <-ctx.Done():
			zap.L().Debug("Token cleanup stopped")
			return
		case <-ticker.C:
			n, err := s.ClearExpiredResetTokens(ctx, time.Now())
			if err != nil {
				// Try again on the next tick
				zap.L().Error("Failed to clear expired reset tokens", zap.Error(err))
				continue
			}

			if n > 0 {
				expiredTokensCleared.Add(float64(n))
				zap.L().Debug("Cleared expired reset tokens", zap.Int64("count", n))
			}
		}
	}
}
