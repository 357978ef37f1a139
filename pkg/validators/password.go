package validators

import "errors"

const (
	MinPasswordLength = 6
	MaxPasswordLength = 255
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordEmpty    = errors.New("no password provided")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	if len(p) > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	return nil
}

// PasswordConfirmation validates p and checks it equals its confirmation c
func PasswordConfirmation(p, c string) error {
	if err := PasswordValidator(p); err != nil {
		return err
	}

	if p != c {
		return ErrPasswordMismatch
	}

	return nil
}
