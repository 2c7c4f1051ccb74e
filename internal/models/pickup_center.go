package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrPickupCenterUnavailable = errors.New("pickup center not available")

type PickupCenter struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func GetActivePickupCenters(tx *gorm.DB) ([]PickupCenter, error) {
	if tx == nil {
		tx = db.DB
	}

	var centers []PickupCenter
	if err := tx.Where("active = ?", true).Order("state, city, name").Find(&centers).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return centers, nil
}

// EnsureActivePickupCenter fails with ErrPickupCenterUnavailable when the
// center is missing or disabled.
func EnsureActivePickupCenter(tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = db.DB
	}

	var active bool
	err := tx.Model(&PickupCenter{}).
		Select("count(*) > 0").
		Where("id = ? AND active = ?", id, true).
		Scan(&active).Error
	if err != nil {
		return logger.WrapError(err, "")
	}
	if !active {
		return ErrPickupCenterUnavailable
	}

	return nil
}
