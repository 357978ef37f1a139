package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailValidator(t *testing.T) {
	tests := []struct {
		email string
		want  error
	}{
		{"jane@x.com", nil},
		{"jane.doe+tag@example.co.uk", nil},
		{"", ErrEmailEmpty},
		{"jane", ErrEmailInvalid},
		{"jane@", ErrEmailInvalid},
		{"@x.com", ErrEmailInvalid},
		{"jane doe@x.com", ErrEmailInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, EmailValidator(tt.email))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@x.com", NormalizeEmail("  Jane@X.COM \t"))
	assert.Equal(t, "jane@x.com", NormalizeEmail("jane@x.com"))
}

func TestPasswordValidator(t *testing.T) {
	assert.ErrorIs(t, PasswordValidator(""), ErrPasswordEmpty)
	assert.ErrorIs(t, PasswordValidator("12345"), ErrPasswordTooShort)
	assert.NoError(t, PasswordValidator("123456"))
	assert.ErrorIs(t, PasswordValidator(strings.Repeat("a", 256)), ErrPasswordTooLong)
}

func TestPasswordConfirmation(t *testing.T) {
	assert.NoError(t, PasswordConfirmation("secret1", "secret1"))
	assert.ErrorIs(t, PasswordConfirmation("secret1", "secret2"), ErrPasswordMismatch)
	// Length is checked before the confirmation
	assert.ErrorIs(t, PasswordConfirmation("abc", "abd"), ErrPasswordTooShort)
}
