package auth

import "time"

// Outcome is the result of validating a token against an account. When
// Valid is false, Reason holds one of the token errors from this package.
type Outcome struct {
	Valid     bool
	Subject   string
	Role      string
	ExpiresAt time.Time
	Reason    error
}

// Validator composes decode, expiry, and subject-match checks. Pure: no
// I/O, no clock of its own; callers pass the current time explicitly.
type Validator struct {
	codec *TokenCodec
}

// NewValidator builds a validator over the given codec.
func NewValidator(codec *TokenCodec) *Validator {
	return &Validator{codec: codec}
}

// IsExpired reports whether the token is expired at the given instant.
// A token that cannot be decoded counts as expired.
func (v *Validator) IsExpired(tokenStr string, now time.Time) bool {
	expiresAt, err := v.codec.ExtractExpiration(tokenStr)
	if err != nil {
		return true
	}
	return !now.Before(expiresAt)
}

// Validate decodes the token and checks expiry and subject match in order.
// expectedSubject is the account's current identifier; a token issued for a
// stale identifier is rejected with ErrSubjectMismatch.
func (v *Validator) Validate(tokenStr, expectedSubject string, now time.Time) Outcome {
	claims, err := v.codec.Decode(tokenStr)
	if err != nil {
		return Outcome{Reason: err}
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return Outcome{Reason: ErrTokenExpired}
	}
	if claims.Subject != expectedSubject {
		return Outcome{Reason: ErrSubjectMismatch}
	}
	return Outcome{
		Valid:     true,
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}
