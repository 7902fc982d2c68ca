package auth

import (
	"encoding/base64"
	"fmt"
)

// HMAC-SHA256 needs at least a 256-bit key.
const minSigningKeyBytes = 32

// SigningKeyFromSecret decodes the configured base64 secret into raw key
// bytes. It is called once at startup; an undecodable or short secret is a
// boot failure, never a per-request error.
func SigningKeyFromSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is not configured")
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("signing secret is not valid base64: %w", err)
	}
	if len(key) < minSigningKeyBytes {
		return nil, fmt.Errorf("signing secret decodes to %d bytes, need at least %d", len(key), minSigningKeyBytes)
	}
	return key, nil
}
