package repository

import (
	"github.com/evergift/evergift/app/models"
	"gorm.io/gorm"
)

// giftRepository implements the GiftRepository interface
type giftRepository struct {
	db *gorm.DB
}

// NewGiftRepository creates a new gift repository instance
func NewGiftRepository(db *gorm.DB) GiftRepository {
	return &giftRepository{db: db}
}

func (r *giftRepository) Create(gift *models.Gift) error {
	return r.db.Create(gift).Error
}

func (r *giftRepository) GetByUUID(uuid string) (*models.Gift, error) {
	var gift models.Gift
	err := r.db.Where("uuid = ?", uuid).First(&gift).Error
	if err != nil {
		return nil, err
	}
	return &gift, nil
}

func (r *giftRepository) Update(gift *models.Gift) error {
	return r.db.Save(gift).Error
}

func (r *giftRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Gift{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
