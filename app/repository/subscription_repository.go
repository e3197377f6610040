package repository

import (
	"time"

	"github.com/evergift/evergift/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) Save(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

// MarkExpired transitions an active subscription to expired. The status
// guard in the WHERE clause makes concurrent lazy-expiry attempts
// idempotent: the second writer matches zero rows.
func (r *subscriptionRepository) MarkExpired(subID uint) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", subID, models.SubscriptionStatusActive).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionStatusExpired,
			"auto_renew": false,
		}).Error
}

func (r *subscriptionRepository) Cancel(subID uint, at time.Time) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", subID, models.SubscriptionStatusActive).
		Updates(map[string]interface{}{
			"status":       models.SubscriptionStatusCancelled,
			"auto_renew":   false,
			"cancelled_at": at,
		}).Error
}

func (r *subscriptionRepository) Refund(subID uint, at time.Time) error {
	return r.db.Model(&models.Subscription{}).
		Where("id = ?", subID).
		Updates(map[string]interface{}{
			"status":       models.SubscriptionStatusRefunded,
			"auto_renew":   false,
			"cancelled_at": at,
		}).Error
}

// ListOverdue returns active subscriptions whose scheduled end date has
// passed, for the periodic sweeper.
func (r *subscriptionRepository) ListOverdue(now time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	q := r.db.Where("status = ? AND end_date IS NOT NULL AND end_date < ?",
		models.SubscriptionStatusActive, now)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&subs).Error
	return subs, err
}
