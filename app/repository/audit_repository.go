package repository

import (
	"github.com/evergift/evergift/app/models"
	"gorm.io/gorm"
)

// auditLogRepository implements the AuditLogRepository interface
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates a new audit log repository instance
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(entry *models.AuditLogEntry) error {
	return r.db.Create(entry).Error
}
