package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenCodec issues and parses signed JWTs. It is stateless apart from the
// read-only signing key and safe for concurrent use.
type TokenCodec struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenCodec builds a codec around a signing key and token lifetime.
func NewTokenCodec(key []byte, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenCodec{key: key, ttl: ttl, now: time.Now}
}

// WithClock overrides the codec's time source. Used by tests to issue
// tokens at a fixed instant.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	c.now = now
	return c
}

// Claims describes the JWT payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Encode builds and signs a token for the subject. Claims carry the
// subject, its role, and issue/expiry instants derived from the codec clock.
func (c *TokenCodec) Encode(subject, role string) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Decode verifies the token signature and returns its claims. Expiry is
// deliberately not checked here; the Validator owns that decision, so even
// an expired token decodes cleanly as long as it is intact.
func (c *TokenCodec) Decode(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrMalformedToken
	}
	if claims.Subject == "" || claims.Role == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// ExtractSubject returns the token's subject claim.
func (c *TokenCodec) ExtractSubject(tokenStr string) (string, error) {
	claims, err := c.Decode(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractRole returns the token's role claim.
func (c *TokenCodec) ExtractRole(tokenStr string) (string, error) {
	claims, err := c.Decode(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}

// ExtractExpiration returns the token's expiry instant.
func (c *TokenCodec) ExtractExpiration(tokenStr string) (time.Time, error) {
	claims, err := c.Decode(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

// classifyParseError folds golang-jwt parse errors into the token error
// taxonomy. Anything unrecognized counts as malformed so an unexpected
// failure can never authenticate a request.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	default:
		return ErrMalformedToken
	}
}
