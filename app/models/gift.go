package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gift is a published gift page shell. Content blocks are managed by the
// editor outside this service; the guard only needs ownership and the
// photo/music counters for limit checks.
type Gift struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	Title      string         `gorm:"type:varchar(200)" json:"title"`
	Slug       string         `gorm:"type:varchar(200);index" json:"slug"`
	Message    string         `gorm:"type:text" json:"-"` // personal note, encrypted at rest

	PhotoCount int            `gorm:"default:0" json:"photo_count"`
	MusicCount int            `gorm:"default:0" json:"music_count"`
	Published  bool           `gorm:"default:false" json:"published"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures every gift gets a public UUID.
func (g *Gift) BeforeCreate(tx *gorm.DB) error {
	if g.UUID == "" {
		g.UUID = uuid.New().String()
	}
	return nil
}
