package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evergift/evergift/internal/pkg/env"
)

const (
	// DefaultSessionTTL is how long an issued session token stays valid.
	DefaultSessionTTL = 7 * 24 * time.Hour

	// DefaultTokenBytes is the entropy of verification/reset tokens.
	DefaultTokenBytes = 32

	devSessionSecret = "evergift-dev-session-secret"
)

// Vault signs and verifies session tokens and produces the one-way digests
// and random tokens used by the auth flows. The signing secret is fixed at
// construction; a missing secret is a startup error, not a silent fallback.
type Vault struct {
	secret []byte
}

// SessionClaims is the payload carried by the session cookie.
type SessionClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewVault creates a vault with an explicit signing secret.
func NewVault(secret string) (*Vault, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("security: session secret is required")
	}
	return &Vault{secret: []byte(secret)}, nil
}

// NewVaultFromEnv reads SESSION_SECRET. Outside dev mode an empty secret
// fails loudly so a production deployment can never sign tokens with a
// guessable default.
func NewVaultFromEnv() (*Vault, error) {
	secret := env.GetEnv("SESSION_SECRET", "")
	if secret == "" {
		if !env.IsDev() {
			return nil, errors.New("security: SESSION_SECRET must be set")
		}
		secret = devSessionSecret
	}
	return NewVault(secret)
}

// IssueSessionToken signs a session token for the given user. A ttl of 0
// uses DefaultSessionTTL.
func (v *Vault) IssueSessionToken(userID uint, email string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}

// VerifySessionToken validates signature and expiry. Tampered, expired and
// malformed tokens all come back as nil; callers treat that as "no
// session" and must never see an error.
func (v *Vault) VerifySessionToken(tokenString string) *SessionClaims {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	if claims.UserID == 0 {
		return nil
	}
	return claims
}

// GenerateSecureToken returns a hex-encoded cryptographically secure
// random token, e.g. for email verification links.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenBytes
	}
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateNumericCode returns a 6-digit code uniform over
// [100000, 999999] for OTP-style flows.
func GenerateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	code := n.Int64() + 100000
	return big.NewInt(code).String(), nil
}

// SHA256Hex returns the hex-encoded sha256 digest of data.
func SHA256Hex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// HashToken digests a raw token for server-side storage so the raw secret
// never touches the database.
func HashToken(token string) string {
	return SHA256Hex(token)
}

// IsExpired reports whether the given expiry lies in the past.
func IsExpired(expiresAt time.Time) bool {
	return time.Now().After(expiresAt)
}

// ExpiryDate returns the point in time d from now.
func ExpiryDate(d time.Duration) time.Time {
	return time.Now().Add(d)
}
