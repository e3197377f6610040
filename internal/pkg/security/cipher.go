package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/pbkdf2"

	"github.com/evergift/evergift/internal/pkg/env"
)

const (
	kdfIterations = 100000
	kdfKeyLength  = 32

	// The salt is domain separation, not a secret: every ciphertext of a
	// deployment shares one derived key. Rotating the key means rotating
	// ENCRYPTION_SECRET and re-encrypting stored values.
	kdfSalt = "evergift.cipher.v1"

	ivSize     = 16
	gcmTagSize = 16
)

// Crypto failures are deliberately opaque: callers and response bodies
// must not learn why a payload failed to decrypt.
var (
	ErrEncryptFailed    = errors.New("security: encryption failed")
	ErrDecryptFailed    = errors.New("security: decryption failed")
	ErrMalformedPayload = errors.New("security: malformed encrypted payload")
)

// Cipher provides authenticated encryption for sensitive strings at rest.
// Payloads are serialized as hex(iv):hex(tag):hex(ciphertext).
type Cipher struct {
	key []byte
}

// NewCipher derives a 32-byte AES key from the given secret via
// PBKDF2-SHA256 with a fixed salt and high iteration count.
func NewCipher(secret string) (*Cipher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("security: encryption secret is required")
	}
	key := pbkdf2.Key([]byte(secret), []byte(kdfSalt), kdfIterations, kdfKeyLength, sha256.New)
	return &Cipher{key: key}, nil
}

// NewCipherFromEnv reads ENCRYPTION_SECRET, failing at startup when it is
// missing outside dev mode.
func NewCipherFromEnv() (*Cipher, error) {
	secret := env.GetEnv("ENCRYPTION_SECRET", "")
	if secret == "" {
		if !env.IsDev() {
			return nil, errors.New("security: ENCRYPTION_SECRET must be set")
		}
		secret = "evergift-dev-encryption-secret"
	}
	return NewCipher(secret)
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random 16-byte
// IV. Encrypting the same plaintext twice yields different payloads.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		log.Errorf("cipher: iv generation failed: %v", err)
		return "", ErrEncryptFailed
	}

	aead, err := c.newAEAD()
	if err != nil {
		log.Errorf("cipher: aead setup failed: %v", err)
		return "", ErrEncryptFailed
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	// Seal appends the tag to the ciphertext; the wire format carries it
	// as its own segment.
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt parses the three-segment payload and opens it, failing closed on
// any malformed segment or authentication failure. It never returns
// partial plaintext.
func (c *Cipher) Decrypt(payload string) (string, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return "", ErrMalformedPayload
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return "", ErrMalformedPayload
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != gcmTagSize {
		return "", ErrMalformedPayload
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformedPayload
	}

	aead, err := c.newAEAD()
	if err != nil {
		log.Errorf("cipher: aead setup failed: %v", err)
		return "", ErrDecryptFailed
	}

	plaintext, err := aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		// Tag mismatch or tampering. Details stay server-side.
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func (c *Cipher) newAEAD() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivSize)
}
