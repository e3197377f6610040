package models

import "time"

// Security-relevant action taxonomy. Values are stored verbatim, so they
// are part of the audit trail contract and must stay stable.
const (
	AuditActionRegister            = "register"
	AuditActionLogin               = "login"
	AuditActionLoginFailed         = "login_failed"
	AuditActionLoginLocked         = "login_locked"
	AuditActionLogout              = "logout"
	AuditActionEmailVerified       = "email_verified"
	AuditActionPasswordChanged     = "password_changed"
	AuditActionRateLimited         = "rate_limited"
	AuditActionAccessDenied        = "access_denied"
	AuditActionSubscriptionExpired = "subscription_expired"
	AuditActionSubscriptionCancel  = "subscription_cancelled"
	AuditActionSubscriptionRefund  = "subscription_refunded"
)

// AuditLogEntry is append-only: this service only ever creates rows.
// UserID is nil for pre-auth events such as failed logins on unknown
// accounts.
type AuditLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Action    string    `gorm:"type:varchar(64);not null;index" json:"action"`
	IPAddress string    `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent string    `gorm:"type:varchar(255)" json:"user_agent"`
	Metadata  string    `gorm:"type:text" json:"metadata,omitempty"` // opaque JSON bag
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
