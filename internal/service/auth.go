package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitwise74/auth-api/internal/model"
	"bitwise74/auth-api/internal/notify"
	"bitwise74/auth-api/internal/store"
	"bitwise74/auth-api/pkg/security"
	"bitwise74/auth-api/pkg/validators"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	idLength  = 16

	DefaultResetExpiry = 15 * time.Minute
)

// TokenIssuer signs session tokens for an account
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type AuthServiceOpts struct {
	Store       store.AccountStore
	Hasher      security.PasswordHasher
	ResetTokens security.ResetTokenGenerator
	Tokens      TokenIssuer
	Notifier    notify.Notifier
	// ResetExpiry defaults to DefaultResetExpiry
	ResetExpiry time.Duration
	FrontendURL string
	Now         func() time.Time
}

// AuthService implements registration, login and the password reset flow
// on top of an account store
type AuthService struct {
	store       store.AccountStore
	hasher      security.PasswordHasher
	resetTokens security.ResetTokenGenerator
	tokens      TokenIssuer
	notifier    notify.Notifier
	resetExpiry time.Duration
	frontendURL string
	now         func() time.Time

	// Verified against when the email is unknown so that login takes
	// about as long as for an existing account
	dummyHash string
}

// Session is returned after a successful register, login or reset
type Session struct {
	Token string
	User  *model.PublicUser
}

type RegisterInput struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

type ResetPasswordInput struct {
	Token           string
	Password        string
	ConfirmPassword string
}

func NewAuthService(o *AuthServiceOpts) (*AuthService, error) {
	switch {
	case o.Store == nil:
		return nil, errors.New("account store is required")
	case o.Hasher == nil:
		return nil, errors.New("password hasher is required")
	case o.ResetTokens == nil:
		return nil, errors.New("reset token generator is required")
	case o.Tokens == nil:
		return nil, errors.New("token issuer is required")
	case o.Notifier == nil:
		return nil, errors.New("notifier is required")
	case o.FrontendURL == "":
		return nil, errors.New("frontend url is required")
	}

	s := &AuthService{
		store:       o.Store,
		hasher:      o.Hasher,
		resetTokens: o.ResetTokens,
		tokens:      o.Tokens,
		notifier:    o.Notifier,
		resetExpiry: o.ResetExpiry,
		frontendURL: o.FrontendURL,
		now:         o.Now,
	}

	if s.resetExpiry <= 0 {
		s.resetExpiry = DefaultResetExpiry
	}

	if s.now == nil {
		s.now = time.Now
	}

	// Reject a frontend url that can't be turned into a link at startup
	// rather than on the first reset request
	if _, err := notify.ResetLink(s.frontendURL, "probe"); err != nil {
		return nil, err
	}

	dummy, err := gonanoid.Generate(idCharset, 32)
	if err != nil {
		return nil, err
	}

	s.dummyHash, err = s.hasher.GenerateFromPassword(dummy)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *AuthService) Register(ctx context.Context, in *RegisterInput) (*Session, error) {
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	email := validators.NormalizeEmail(in.Email)

	if firstName == "" || lastName == "" || email == "" || in.Password == "" || in.ConfirmPassword == "" {
		registrations.WithLabelValues("invalid").Inc()
		return nil, validationError(MsgAllFieldsRequired)
	}

	if err := validators.EmailValidator(email); err != nil {
		registrations.WithLabelValues("invalid").Inc()
		return nil, validationError(MsgInvalidEmail)
	}

	if err := validators.PasswordConfirmation(in.Password, in.ConfirmPassword); err != nil {
		registrations.WithLabelValues("invalid").Inc()
		return nil, passwordError(err)
	}

	_, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		registrations.WithLabelValues("email_taken").Inc()
		return nil, errEmailTaken
	}

	if !errors.Is(err, store.ErrNotFound) {
		return nil, internalError("FindByEmail", err)
	}

	hash, err := s.hasher.GenerateFromPassword(in.Password)
	if err != nil {
		return nil, internalError("GenerateFromPassword", err)
	}

	id, err := gonanoid.Generate(idCharset, idLength)
	if err != nil {
		return nil, internalError("GenerateID", err)
	}

	user := &model.User{
		ID:           id,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: hash,
		Verified:     true,
	}

	// The lookup above is only a fast path, two concurrent registrations
	// are settled by the unique index
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			registrations.WithLabelValues("email_taken").Inc()
			return nil, errEmailTaken
		}

		return nil, internalError("Create", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, internalError("IssueToken", err)
	}

	registrations.WithLabelValues("success").Inc()
	zap.L().Debug("Account registered", zap.String("userID", user.ID))

	return &Session{Token: token, User: user.Public()}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = validators.NormalizeEmail(email)

	if email == "" || password == "" {
		loginAttempts.WithLabelValues("invalid").Inc()
		return nil, validationError(MsgCredentialsRequired)
	}

	if err := validators.EmailValidator(email); err != nil {
		loginAttempts.WithLabelValues("invalid").Inc()
		return nil, validationError(MsgInvalidEmail)
	}

	creds, err := s.store.FindCredentials(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_, _ = s.hasher.VerifyPasswd(password, s.dummyHash)
			loginAttempts.WithLabelValues("failed").Inc()
			return nil, errInvalidCredentials
		}

		return nil, internalError("FindCredentials", err)
	}

	ok, err := s.hasher.VerifyPasswd(password, creds.PasswordHash)
	if err != nil {
		return nil, internalError("VerifyPasswd", err)
	}

	if !ok {
		loginAttempts.WithLabelValues("failed").Inc()
		return nil, errInvalidCredentials
	}

	if s.hasher.NeedsRehash(creds.PasswordHash) {
		s.rehash(ctx, creds.User.ID, password)
	}

	token, err := s.tokens.Issue(creds.User.ID)
	if err != nil {
		return nil, internalError("IssueToken", err)
	}

	loginAttempts.WithLabelValues("success").Inc()
	return &Session{Token: token, User: creds.User}, nil
}

// rehash upgrades a stored hash to the current parameters. A failure only
// means the upgrade is retried on the next login.
func (s *AuthService) rehash(ctx context.Context, id, password string) {
	hash, err := s.hasher.GenerateFromPassword(password)
	if err != nil {
		zap.L().Warn("Failed to rehash password", zap.Error(err), zap.String("userID", id))
		return
	}

	if err := s.store.UpdatePasswordHash(ctx, id, hash); err != nil {
		zap.L().Warn("Failed to store rehashed password", zap.Error(err), zap.String("userID", id))
		return
	}

	zap.L().Info("Upgraded password hash", zap.String("userID", id))
}

// ForgotPassword issues a reset token and mails a link to it. Unknown
// emails succeed without doing anything so the response never reveals
// whether an account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = validators.NormalizeEmail(email)

	if email == "" {
		resetRequests.WithLabelValues("invalid").Inc()
		return validationError(MsgEmailRequired)
	}

	if err := validators.EmailValidator(email); err != nil {
		resetRequests.WithLabelValues("invalid").Inc()
		return validationError(MsgInvalidEmail)
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			resetRequests.WithLabelValues("unknown_email").Inc()
			return nil
		}

		return internalError("FindByEmail", err)
	}

	token, hash, err := s.resetTokens.Generate()
	if err != nil {
		return internalError("GenerateResetToken", err)
	}

	expiry := s.now().Add(s.resetExpiry)
	if err := s.store.SetResetToken(ctx, user.ID, hash, expiry); err != nil {
		return internalError("SetResetToken", err)
	}

	link, err := notify.ResetLink(s.frontendURL, token)
	if err != nil {
		s.rollbackResetToken(ctx, user.ID, hash)
		return internalError("ResetLink", err)
	}

	err = s.notifier.SendResetLink(ctx, &notify.ResetMail{
		To:       user.Email,
		Link:     link,
		ValidFor: s.resetExpiry,
	})
	if err != nil {
		kind := notify.KindOf(err)

		zap.L().Error("Failed to send reset email",
			zap.Error(err),
			zap.String("kind", kind.String()),
			zap.String("userID", user.ID),
		)

		s.rollbackResetToken(ctx, user.ID, hash)
		resetRequests.WithLabelValues("delivery_failed").Inc()

		return deliveryError(kind)
	}

	resetRequests.WithLabelValues("sent").Inc()
	return nil
}

// rollbackResetToken runs even if the request was cancelled, a token whose
// link never reached the user must not stay valid
func (s *AuthService) rollbackResetToken(ctx context.Context, id, hash string) {
	if err := s.store.ClearResetToken(context.WithoutCancel(ctx), id, hash); err != nil {
		zap.L().Error("Failed to roll back reset token", zap.Error(err), zap.String("userID", id))
	}
}

// VerifyResetToken reports which account a pending reset token belongs to
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", validationError(MsgResetTokenRequired)
	}

	user, err := s.store.FindByResetToken(ctx, s.resetTokens.Hash(token), s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", errInvalidResetToken
		}

		return "", internalError("FindByResetToken", err)
	}

	return user.Email, nil
}

// ResetPassword consumes a reset token and replaces the password. The token
// is single use, a second call with it fails.
func (s *AuthService) ResetPassword(ctx context.Context, in *ResetPasswordInput) (*Session, error) {
	if in.Token == "" || in.Password == "" || in.ConfirmPassword == "" {
		resetCompletions.WithLabelValues("invalid").Inc()
		return nil, validationError(MsgResetFieldsRequired)
	}

	if err := validators.PasswordConfirmation(in.Password, in.ConfirmPassword); err != nil {
		resetCompletions.WithLabelValues("invalid").Inc()
		return nil, passwordError(err)
	}

	hash := s.resetTokens.Hash(in.Token)

	user, err := s.store.FindByResetToken(ctx, hash, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			resetCompletions.WithLabelValues("invalid_token").Inc()
			return nil, errInvalidResetToken
		}

		return nil, internalError("FindByResetToken", err)
	}

	pwHash, err := s.hasher.GenerateFromPassword(in.Password)
	if err != nil {
		return nil, internalError("GenerateFromPassword", err)
	}

	// Hashing takes a while, the token may have expired or been used by a
	// concurrent request in the meantime
	if err := s.store.ConsumeResetToken(ctx, user.ID, hash, pwHash, s.now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			resetCompletions.WithLabelValues("invalid_token").Inc()
			return nil, errInvalidResetToken
		}

		return nil, internalError("ConsumeResetToken", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, internalError("IssueToken", err)
	}

	resetCompletions.WithLabelValues("success").Inc()
	zap.L().Info("Password reset", zap.String("userID", user.ID))

	return &Session{Token: token, User: user}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errAccountNotFound
		}

		return nil, internalError("FindByID", err)
	}

	return user, nil
}

// Ping reports whether the account store is reachable
func (s *AuthService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func passwordError(err error) error {
	switch {
	case errors.Is(err, validators.ErrPasswordTooShort), errors.Is(err, validators.ErrPasswordEmpty):
		return validationError(MsgPasswordTooShort)
	case errors.Is(err, validators.ErrPasswordTooLong):
		return validationError(MsgPasswordTooLong)
	case errors.Is(err, validators.ErrPasswordMismatch):
		return validationError(MsgPasswordMismatch)
	}

	return validationError(err.Error())
}
