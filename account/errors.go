package account

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMissingField          = "MISSING_FIELD"
	TextCodeInvalidEmail          = "INVALID_EMAIL_FORMAT"
	TextCodeWeakPassword          = "WEAK_PASSWORD"
	TextCodeAccountExists         = "ACCOUNT_EXISTS"
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeEmailNotVerified      = "EMAIL_NOT_VERIFIED"
	TextCodeInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	TextCodeUserNotFound          = "USER_NOT_FOUND"
	TextCodeAlreadyVerified       = "ALREADY_VERIFIED"
	TextCodeSessionInvalid        = "SESSION_INVALID_OR_EXPIRED"
	TextCodeEmptyPassword         = "EMPTY_PASSWORD"
)

// ErrAccountExists is returned when registration collides with a verified
// account, or the storage layer reports a uniqueness violation.
var ErrAccountExists = goerrors.New("an account with this email or username already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials deliberately conflates "no such user" and "wrong
// password" so responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailNotVerified blocks login until the address is confirmed.
var ErrEmailNotVerified = goerrors.New("email address has not been verified", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidOrExpiredToken deliberately conflates "not found" and
// "expired" for verification and reset tokens.
var ErrInvalidOrExpiredToken = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidOrExpiredToken).
	WithCode(goerrors.CodeBadRequest)

// ErrUserNotFound is only surfaced by resend-verification, which is not an
// enumeration-sensitive operation.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAlreadyVerified rejects resending verification for verified accounts.
var ErrAlreadyVerified = goerrors.New("account is already verified", goerrors.CategoryValidation).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(goerrors.CodeBadRequest)

// ErrSessionInvalid covers expired, tampered, and malformed session tokens
// alike; callers cannot distinguish which.
var ErrSessionInvalid = goerrors.New("invalid or expired session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty plaintext before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch marker;
// lifecycle handlers translate it to ErrInvalidCredentials.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// NewMissingFieldError reports a required field absent from the request.
func NewMissingFieldError(field string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("missing required field: %s", field), goerrors.CategoryBadInput).
		WithTextCode(TextCodeMissingField).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"field": field})
}

// NewInvalidEmailError reports a syntactically invalid email address.
func NewInvalidEmailError() *goerrors.Error {
	return goerrors.New("invalid email format", goerrors.CategoryBadInput).
		WithTextCode(TextCodeInvalidEmail).
		WithCode(goerrors.CodeBadRequest)
}

// NewWeakPasswordError carries the per-rule breakdown so clients can tell
// the user exactly which rules failed.
func NewWeakPasswordError(checks PasswordChecks) *goerrors.Error {
	return goerrors.New("password does not meet strength requirements", goerrors.CategoryValidation).
		WithTextCode(TextCodeWeakPassword).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"checks": checks.Map()})
}
