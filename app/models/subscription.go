package models

import "time"

const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusRefunded  = "refunded"
	SubscriptionStatusExpired   = "expired"
)

// Subscription is the authoritative record behind every entitlement
// decision. There is at most one per user and it is never physically
// deleted; its lifecycle is tracked via Status.
type Subscription struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Plan        string     `gorm:"type:varchar(50);not null" json:"plan"`
	Status      string     `gorm:"type:varchar(32);not null;default:'pending';index" json:"status"`
	StartDate   time.Time  `gorm:"type:timestamp;not null" json:"start_date"`
	EndDate     *time.Time `gorm:"type:timestamp;default:null" json:"end_date,omitempty"` // nil = no scheduled expiry
	AutoRenew   bool       `gorm:"default:false" json:"auto_renew"`
	CancelledAt *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the subscription lifecycle state is active.
// It does not consider EndDate; overdue detection is IsOverdue.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// IsOverdue reports whether an active subscription has a scheduled end
// date strictly in the past.
func (s *Subscription) IsOverdue(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.EndDate != nil && s.EndDate.Before(now)
}
