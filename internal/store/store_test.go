package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"bitwise74/auth-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id, email string) *model.User {
	return &model.User{
		ID:           id,
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        email,
		PasswordHash: "hash-" + id,
		Verified:     true,
	}
}

// runAccountStoreTests checks the behavior every AccountStore has to share
func runAccountStoreTests(t *testing.T, newStore func(t *testing.T) AccountStore) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("create and find", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))

		byID, err := s.FindByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "jane@x.com", byID.Email)
		assert.Equal(t, "Jane", byID.FirstName)
		assert.True(t, byID.Verified)

		byEmail, err := s.FindByEmail(ctx, "jane@x.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", byEmail.ID)

		_, err = s.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.FindByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))

		err := s.Create(ctx, newUser("u2", "jane@x.com"))
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("concurrent registrations with one email", func(t *testing.T) {
		s := newStore(t)

		var wg sync.WaitGroup
		errs := make([]error, 5)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Create(ctx, newUser(string(rune('a'+i)), "race@x.com"))
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, ErrEmailTaken)
		}
		assert.Equal(t, 1, created)
	})

	t.Run("only credentials expose the hash", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))

		creds, err := s.FindCredentials(ctx, "jane@x.com")
		require.NoError(t, err)
		assert.Equal(t, "hash-u1", creds.PasswordHash)
		assert.Equal(t, "u1", creds.User.ID)

		_, err = s.FindCredentials(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("reset token lookup honours expiry", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))
		require.NoError(t, s.SetResetToken(ctx, "u1", "h1", now.Add(15*time.Minute)))

		u, err := s.FindByResetToken(ctx, "h1", now)
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)

		_, err = s.FindByResetToken(ctx, "h1", now.Add(15*time.Minute))
		assert.ErrorIs(t, err, ErrNotFound, "expiry equal to now is expired")

		_, err = s.FindByResetToken(ctx, "other", now)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("newer token replaces the old one", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))
		require.NoError(t, s.SetResetToken(ctx, "u1", "h1", now.Add(time.Hour)))
		require.NoError(t, s.SetResetToken(ctx, "u1", "h2", now.Add(time.Hour)))

		_, err := s.FindByResetToken(ctx, "h1", now)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.FindByResetToken(ctx, "h2", now)
		assert.NoError(t, err)
	})

	t.Run("set token on missing account", func(t *testing.T) {
		s := newStore(t)
		err := s.SetResetToken(ctx, "missing", "h1", now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("clear only removes a matching token", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))
		require.NoError(t, s.SetResetToken(ctx, "u1", "h2", now.Add(time.Hour)))

		require.NoError(t, s.ClearResetToken(ctx, "u1", "h1"))
		_, err := s.FindByResetToken(ctx, "h2", now)
		require.NoError(t, err)

		require.NoError(t, s.ClearResetToken(ctx, "u1", "h2"))
		_, err = s.FindByResetToken(ctx, "h2", now)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("consume is single use", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))
		require.NoError(t, s.SetResetToken(ctx, "u1", "h1", now.Add(time.Hour)))

		require.NoError(t, s.ConsumeResetToken(ctx, "u1", "h1", "new-hash", now))

		creds, err := s.FindCredentials(ctx, "jane@x.com")
		require.NoError(t, err)
		assert.Equal(t, "new-hash", creds.PasswordHash)

		err = s.ConsumeResetToken(ctx, "u1", "h1", "newer-hash", now)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.FindByResetToken(ctx, "h1", now)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("consume rejects an expired token", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))
		require.NoError(t, s.SetResetToken(ctx, "u1", "h1", now.Add(time.Minute)))

		err := s.ConsumeResetToken(ctx, "u1", "h1", "new-hash", now.Add(2*time.Minute))
		assert.ErrorIs(t, err, ErrNotFound)

		creds, err := s.FindCredentials(ctx, "jane@x.com")
		require.NoError(t, err)
		assert.Equal(t, "hash-u1", creds.PasswordHash)
	})

	t.Run("concurrent consume succeeds once", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))
		require.NoError(t, s.SetResetToken(ctx, "u1", "h1", now.Add(time.Hour)))

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.ConsumeResetToken(ctx, "u1", "h1", "new-hash", now)
			}(i)
		}
		wg.Wait()

		ok := 0
		for _, err := range errs {
			if err == nil {
				ok++
			}
		}
		assert.Equal(t, 1, ok)
	})

	t.Run("update password hash", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "jane@x.com")))
		require.NoError(t, s.UpdatePasswordHash(ctx, "u1", "rehashed"))

		creds, err := s.FindCredentials(ctx, "jane@x.com")
		require.NoError(t, err)
		assert.Equal(t, "rehashed", creds.PasswordHash)

		assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "missing", "x"), ErrNotFound)
	})

	t.Run("clear expired tokens", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, newUser("u1", "a@x.com")))
		require.NoError(t, s.Create(ctx, newUser("u2", "b@x.com")))
		require.NoError(t, s.Create(ctx, newUser("u3", "c@x.com")))
		require.NoError(t, s.SetResetToken(ctx, "u1", "h1", now.Add(-time.Minute)))
		require.NoError(t, s.SetResetToken(ctx, "u2", "h2", now.Add(time.Hour)))

		n, err := s.ClearExpiredResetTokens(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, err = s.FindByResetToken(ctx, "h2", now)
		assert.NoError(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
