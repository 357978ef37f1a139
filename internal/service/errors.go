package service

import (
	"fmt"

	"bitwise74/auth-api/internal/notify"

	"github.com/samber/oops"
)

// Error codes carried by every error the auth service returns
const (
	CodeValidation          = "VALIDATION"
	CodeEmailTaken          = "EMAIL_TAKEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidResetToken   = "INVALID_RESET_TOKEN"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeResetDeliveryFailed = "RESET_DELIVERY_FAILED"
	CodeInternal            = "INTERNAL"
)

// Messages safe to show to the user
const (
	MsgAllFieldsRequired   = "All fields are required"
	MsgInvalidEmail        = "Please provide a valid email address"
	MsgEmailRequired       = "Please provide an email address"
	MsgPasswordTooShort    = "Password must be at least 6 characters long"
	MsgPasswordTooLong     = "Password must be at most 255 characters long"
	MsgPasswordMismatch    = "Passwords do not match"
	MsgEmailTaken          = "Email already registered"
	MsgCredentialsRequired = "Email and password are required"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgResetLinkSent       = "If this email exists in our system, a reset link has been sent"
	MsgResetTokenRequired  = "Reset token is required"
	MsgResetFieldsRequired = "Token and new password are required"
	MsgInvalidResetToken   = "Invalid or expired reset token"
	MsgAccountNotFound     = "User not found"
	MsgDeliveryFailed      = "Error sending reset email. Please try again later."
	MsgDeliveryAuthFailed  = "The email service rejected our credentials. Please try again later."
	MsgDeliveryConnection  = "Could not reach the email service. Please try again later."
	MsgDeliveryTimedOut    = "The email service took too long to respond. Please try again later."
	MsgInternal            = "Internal server error"
)

// ErrorCode returns the code of an error produced by this package, or
// CodeInternal for anything else
func ErrorCode(err error) string {
	o, ok := oops.AsOops(err)
	if !ok {
		return CodeInternal
	}

	code := fmt.Sprint(o.Code())
	switch code {
	case CodeValidation, CodeEmailTaken, CodeInvalidCredentials, CodeInvalidResetToken,
		CodeAccountNotFound, CodeResetDeliveryFailed:
		return code
	}

	return CodeInternal
}

func validationError(msg string) error {
	return oops.Code(CodeValidation).Errorf("%s", msg)
}

func internalError(op string, err error) error {
	return oops.Code(CodeInternal).With("operation", op).Wrap(err)
}

var (
	errEmailTaken         = oops.Code(CodeEmailTaken).Errorf("%s", MsgEmailTaken)
	errInvalidCredentials = oops.Code(CodeInvalidCredentials).Errorf("%s", MsgInvalidCredentials)
	errInvalidResetToken  = oops.Code(CodeInvalidResetToken).Errorf("%s", MsgInvalidResetToken)
	errAccountNotFound    = oops.Code(CodeAccountNotFound).Errorf("%s", MsgAccountNotFound)
)

func deliveryError(kind notify.ErrorKind) error {
	msg := MsgDeliveryFailed

	switch kind {
	case notify.KindAuthFailed:
		msg = MsgDeliveryAuthFailed
	case notify.KindConnectionFailed:
		msg = MsgDeliveryConnection
	case notify.KindTimedOut:
		msg = MsgDeliveryTimedOut
	}

	return oops.Code(CodeResetDeliveryFailed).With("kind", kind.String()).Errorf("%s", msg)
}
