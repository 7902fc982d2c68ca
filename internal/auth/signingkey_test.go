package auth_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/auth"
)

func TestSigningKeyFromSecret(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString(testKey)

	key, err := auth.SigningKeyFromSecret(secret)
	require.NoError(t, err)
	assert.Equal(t, testKey, key)
}

func TestSigningKeyFromSecretRejectsBadInput(t *testing.T) {
	_, err := auth.SigningKeyFromSecret("")
	assert.Error(t, err)

	_, err = auth.SigningKeyFromSecret("%%% not base64 %%%")
	assert.Error(t, err)

	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	_, err = auth.SigningKeyFromSecret(short)
	assert.Error(t, err)
}
