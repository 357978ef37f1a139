// Package store persists accounts. Read paths are split so that only
// FindCredentials ever returns a password hash.
package store

import (
	"context"
	"errors"
	"time"

	"bitwise74/auth-api/internal/model"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

type AccountStore interface {
	// Create inserts a new account. Returns ErrEmailTaken if the email is
	// already in use.
	Create(ctx context.Context, u *model.User) error

	FindByID(ctx context.Context, id string) (*model.PublicUser, error)
	FindByEmail(ctx context.Context, email string) (*model.PublicUser, error)

	// FindCredentials is the privileged lookup used by login. It is the
	// only read that returns the password hash.
	FindCredentials(ctx context.Context, email string) (*model.Credentials, error)

	// FindByResetToken returns the account holding tokenHash if its expiry
	// is strictly after now.
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.PublicUser, error)

	// SetResetToken overwrites any outstanding reset token of the account.
	SetResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error

	// ClearResetToken removes the reset token of the account, but only if it
	// still is tokenHash. A newer token written concurrently is kept.
	ClearResetToken(ctx context.Context, id, tokenHash string) error

	// ConsumeResetToken sets the new password hash and clears the reset token
	// in a single conditional update. Returns ErrNotFound if the token no
	// longer matches or has expired by now.
	ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error

	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error

	// ClearExpiredResetTokens clears every reset token that expired at or
	// before now and returns how many accounts were touched.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)

	Ping(ctx context.Context) error
}
