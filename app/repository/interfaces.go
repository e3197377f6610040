package repository

import (
	"time"

	"github.com/evergift/evergift/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByVerificationToken(tokenHash string) (*models.User, error)
	Update(user *models.User) error
	UpdatePlanCache(userID uint, plan string) error
	UpdateLoginState(user *models.User) error
}

// SubscriptionRepository defines the interface for subscription lifecycle
// operations. Subscriptions are never deleted; transitions mutate Status.
type SubscriptionRepository interface {
	GetByUserID(userID uint) (*models.Subscription, error)
	Create(sub *models.Subscription) error
	Save(sub *models.Subscription) error
	// MarkExpired transitions an active subscription to expired and clears
	// auto-renew. Expiring an already expired subscription is a no-op.
	MarkExpired(subID uint) error
	Cancel(subID uint, at time.Time) error
	Refund(subID uint, at time.Time) error
	ListOverdue(now time.Time, limit int) ([]models.Subscription, error)
}

// GiftRepository defines the interface for gift-page database operations
type GiftRepository interface {
	Create(gift *models.Gift) error
	GetByUUID(uuid string) (*models.Gift, error)
	Update(gift *models.Gift) error
	CountByUserID(userID uint) (int64, error)
}

// AuditLogRepository appends audit entries. The sink is the only caller;
// entries are immutable once written.
type AuditLogRepository interface {
	Create(entry *models.AuditLogEntry) error
}
