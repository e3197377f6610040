package repository

import (
	"strings"

	"github.com/evergift/evergift/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their normalized email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByVerificationToken retrieves a user by the sha256 hash of their
// verification token. The raw token is never stored.
func (r *userRepository) GetByVerificationToken(tokenHash string) (*models.User, error) {
	trimmed := strings.TrimSpace(tokenHash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.Where("verification_token = ?", trimmed).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves the full user record
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// UpdatePlanCache writes the denormalized display plan. This column is
// advisory only and must never feed authorization decisions.
func (r *userRepository) UpdatePlanCache(userID uint, plan string) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("plan", plan).Error
}

// UpdateLoginState persists only the login bookkeeping columns so a login
// attempt cannot clobber concurrent profile changes.
func (r *userRepository) UpdateLoginState(user *models.User) error {
	return r.db.Model(&models.User{}).Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"failed_login_attempts": user.FailedLoginAttempts,
			"locked_until":          user.LockedUntil,
			"last_login_at":         user.LastLoginAt,
		}).Error
}
