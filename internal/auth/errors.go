package auth

import "errors"

// Token and account-check failures surfaced by the codec and validator.
// Callers branch with errors.Is; ErrorCode maps them to stable codes for
// logging and response bodies.
var (
	ErrMalformedToken   = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired     = errors.New("token has expired")
	ErrSubjectMismatch  = errors.New("token subject does not match account")
	ErrAccountNotFound  = errors.New("no account matches token subject")
)

// ErrorCode returns a stable machine-readable code for a token error.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(err, ErrTokenExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrSubjectMismatch):
		return "SUBJECT_MISMATCH"
	case errors.Is(err, ErrAccountNotFound):
		return "ACCOUNT_NOT_FOUND"
	case errors.Is(err, ErrMalformedToken):
		return "MALFORMED_TOKEN"
	default:
		return "MALFORMED_TOKEN"
	}
}
