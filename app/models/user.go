package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is deliberately above bcrypt.DefaultCost so brute-forcing
	// stolen hashes stays expensive.
	BcryptCost = 12

	// MaxFailedLogins failed attempts lock the account for LockoutDuration.
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

type User struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Name                string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email               string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password            string         `gorm:"type:text" json:"-" validate:"required,min=8"`
	EmailVerified       bool           `gorm:"default:false" json:"email_verified"`
	Plan                string         `gorm:"type:varchar(50);default:''" json:"plan"` // display cache, written only by entitlements.SyncUserPlanCache
	FailedLoginAttempts int            `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	VerificationToken   string         `gorm:"type:varchar(100);index" json:"-"` // sha256 of the raw token, never the raw value
	VerificationSentAt  *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	LastLoginAt         *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// NormalizeEmail lowercases and trims an email address so the unique index
// cannot be bypassed with case or whitespace variations.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     username,
		Email:    NormalizeEmail(email),
		Password: pw,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
// A malformed hash is treated as a mismatch, never an error.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// IsLocked reports whether the account is currently locked out.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RegisterFailedLogin increments the failed-login counter and arms the
// lockout once MaxFailedLogins is reached.
func (u *User) RegisterFailedLogin(now time.Time) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= MaxFailedLogins {
		until := now.Add(LockoutDuration)
		u.LockedUntil = &until
	}
}

// ResetFailedLogins clears the counter and lockout after a successful login.
func (u *User) ResetFailedLogins() {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}

// IsVerificationTokenValid checks the stored token hash against the given
// hash and enforces the 24 hour validity window.
func (u *User) IsVerificationTokenValid(tokenHash string) bool {
	if u.VerificationToken == "" || u.VerificationSentAt == nil {
		return false
	}
	if u.VerificationToken != tokenHash {
		return false
	}
	return time.Since(*u.VerificationSentAt) < 24*time.Hour
}

// ClearVerificationToken marks the pending verification as consumed.
func (u *User) ClearVerificationToken() {
	u.VerificationToken = ""
	u.VerificationSentAt = nil
}
