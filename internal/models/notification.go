package models

import (
	"BPIApi/cmd/db"
	"BPIApi/pkg/logger"
	"time"

	"gorm.io/gorm"
)

type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Seen      bool      `gorm:"index" json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}

func CreateNotification(tx *gorm.DB, userID int64, title, body string) error {
	if tx == nil {
		tx = db.DB
	}

	if err := tx.Create(&Notification{UserID: userID, Title: title, Body: body}).Error; err != nil {
		return logger.WrapError(err, "")
	}

	return nil
}

func ListUserNotifications(tx *gorm.DB, userID int64, unreadOnly bool) ([]Notification, error) {
	if tx == nil {
		tx = db.DB
	}

	query := tx.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("seen = ?", false)
	}

	var notifications []Notification
	if err := query.Order("created_at DESC").Limit(100).Find(&notifications).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	return notifications, nil
}

// MarkNotificationsRead flags the given ids (or all when ids is empty) as read.
func MarkNotificationsRead(tx *gorm.DB, userID int64, ids []int64) error {
	if tx == nil {
		tx = db.DB
	}

	query := tx.Model(&Notification{}).Where("user_id = ?", userID)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	if err := query.Update("seen", true).Error; err != nil {
		return logger.WrapError(err, "")
	}

	return nil
}
