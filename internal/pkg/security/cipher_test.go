package security

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("test-encryption-secret")
	require.NoError(t, err)
	return c
}

func TestNewCipherRequiresSecret(t *testing.T) {
	_, err := NewCipher("")
	require.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	for _, plaintext := range []string{
		"hello world",
		"",
		"Grüße aus München — ünïcôdé",
		strings.Repeat("x", 4096),
	} {
		payload, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := c.Decrypt(payload)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptUsesFreshIV(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	b, err := c.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, strings.Split(a, ":")[0], strings.Split(b, ":")[0])
}

func TestPayloadFormat(t *testing.T) {
	c := newTestCipher(t)

	payload, err := c.Encrypt("check the wire format")
	require.NoError(t, err)

	parts := strings.Split(payload, ":")
	require.Len(t, parts, 3)

	iv, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, iv, 16)

	tag, err := hex.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, tag, 16)
}

func TestDecryptFailsClosed(t *testing.T) {
	c := newTestCipher(t)

	payload, err := c.Encrypt("sensitive value")
	require.NoError(t, err)
	parts := strings.Split(payload, ":")

	flipHexBit := func(s string) string {
		raw, err := hex.DecodeString(s)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return hex.EncodeToString(raw)
	}

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{name: "missing segment", payload: parts[0] + ":" + parts[2], wantErr: ErrMalformedPayload},
		{name: "extra segment", payload: payload + ":deadbeef", wantErr: ErrMalformedPayload},
		{name: "empty", payload: "", wantErr: ErrMalformedPayload},
		{name: "non-hex iv", payload: "zz:" + parts[1] + ":" + parts[2], wantErr: ErrMalformedPayload},
		{name: "truncated iv", payload: "abcd:" + parts[1] + ":" + parts[2], wantErr: ErrMalformedPayload},
		{name: "flipped tag bit", payload: parts[0] + ":" + flipHexBit(parts[1]) + ":" + parts[2], wantErr: ErrDecryptFailed},
		{name: "flipped ciphertext bit", payload: parts[0] + ":" + parts[1] + ":" + flipHexBit(parts[2]), wantErr: ErrDecryptFailed},
		{name: "flipped iv bit", payload: flipHexBit(parts[0]) + ":" + parts[1] + ":" + parts[2], wantErr: ErrDecryptFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Decrypt(tt.payload)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, got)
		})
	}
}

func TestDifferentSecretsCannotDecrypt(t *testing.T) {
	a := newTestCipher(t)
	b, err := NewCipher("another-secret")
	require.NoError(t, err)

	payload, err := a.Encrypt("cross-key")
	require.NoError(t, err)

	_, err = b.Decrypt(payload)
	require.ErrorIs(t, err, ErrDecryptFailed)
}
